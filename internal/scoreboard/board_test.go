package scoreboard

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archops-sim/internal/sim"
)

func entry(id string, score, dur int, ended int64) Entry {
	return Entry{RunID: id, FinalScore: score, DurationSec: dur, EndedAt: time.Unix(ended, 0).UTC()}
}

func TestRankOrder(t *testing.T) {
	entries := []Entry{
		entry("low", 10, 100, 1),
		entry("old", 50, 60, 1),
		entry("new", 50, 60, 2),
		entry("long", 50, 90, 0),
	}
	Rank(entries)
	ids := []string{}
	for _, e := range entries {
		ids = append(ids, e.RunID)
	}
	assert.Equal(t, []string{"long", "new", "old", "low"}, ids)
}

func TestBoardDedupesAndCaps(t *testing.T) {
	b := New(NewMemoryKV())
	for i := 0; i < MaxEntries+5; i++ {
		_, err := b.Add(entry(fmt.Sprintf("r%d", i), i, 10, int64(i)))
		require.NoError(t, err)
	}
	list, err := b.List()
	require.NoError(t, err)
	require.Len(t, list, MaxEntries)
	assert.Equal(t, "r24", list[0].RunID)

	list, err = b.Add(entry("r24", 1, 10, 99))
	require.NoError(t, err)
	require.Len(t, list, MaxEntries)
	count := 0
	for _, e := range list {
		if e.RunID == "r24" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, "r23", list[0].RunID)
}

func TestBoardGetAndClear(t *testing.T) {
	b := New(NewMemoryKV())
	_, err := b.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = b.Add(entry("a", 5, 5, 5))
	require.NoError(t, err)
	got, err := b.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 5, got.FinalScore)

	require.NoError(t, b.Clear())
	list, err := b.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBoardCorruptDataIsEmpty(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Save(Key, "not json"))
	b := New(kv)
	list, err := b.List()
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = b.Add(entry("a", 1, 1, 1))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEntryFromResult(t *testing.T) {
	ended := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := EntryFromResult(sim.RunResult{
		RunID: "r", Seed: 7, Preset: sim.PresetStaff, EndReason: sim.EndRatingCollapsed,
		EndedAt: ended, DurationSec: 300, FinalScore: 420, Multiplier: 1.4, Debt: 12, Rating: 1,
	})
	assert.Equal(t, "r", e.RunID)
	assert.Equal(t, sim.PresetStaff, e.Preset)
	assert.Equal(t, 420, e.FinalScore)
	assert.True(t, e.EndedAt.Equal(ended))
}

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")
	kv, err := OpenSQLite(path)
	require.NoError(t, err)

	_, ok, err := kv.Load("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Save("k", "v1"))
	require.NoError(t, kv.Save("k", "v2"))
	v, ok, err := kv.Load("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	b := New(kv)
	_, err = b.Add(entry("persisted", 9, 9, 9))
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	kv2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer kv2.Close()
	got, err := New(kv2).Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, 9, got.FinalScore)

	require.NoError(t, kv2.Delete("k"))
	_, ok, err = kv2.Load("k")
	require.NoError(t, err)
	assert.False(t, ok)
}
