// Package scoreboard ranks finished runs and persists them through a KV capability.
package scoreboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"archops-sim/internal/sim"
)

const (
	// Key is the storage key holding the ranked list.
	Key = "archops:scoreboard:v1"
	// MaxEntries caps the stored list.
	MaxEntries = 20
)

// ErrNotFound is returned when a run is not on the board.
var ErrNotFound = errors.New("scoreboard: run not found")

// Entry is the persisted subset of a run result.
type Entry struct {
	RunID       string        `json:"run_id"`
	Seed        uint32        `json:"seed"`
	Preset      sim.Preset    `json:"preset"`
	EndReason   sim.EndReason `json:"end_reason"`
	EndedAt     time.Time     `json:"ended_at"`
	DurationSec int           `json:"duration_sec"`
	FinalScore  int           `json:"final_score"`
	Multiplier  float64       `json:"multiplier"`
	Debt        float64       `json:"architecture_debt"`
	Rating      float64       `json:"rating"`
}

// EntryFromResult projects a run result onto a board entry.
func EntryFromResult(r sim.RunResult) Entry {
	return Entry{
		RunID:       r.RunID,
		Seed:        r.Seed,
		Preset:      r.Preset,
		EndReason:   r.EndReason,
		EndedAt:     r.EndedAt.UTC(),
		DurationSec: r.DurationSec,
		FinalScore:  r.FinalScore,
		Multiplier:  r.Multiplier,
		Debt:        r.Debt,
		Rating:      r.Rating,
	}
}

// Board is the ranked list of the best runs.
type Board struct {
	mu sync.Mutex
	kv KV
}

// New returns a Board persisting through kv.
func New(kv KV) *Board {
	return &Board{kv: kv}
}

// load returns the stored list. Unreadable data counts as an empty board
// so the next Add overwrites it.
func (b *Board) load() ([]Entry, error) {
	raw, ok, err := b.kv.Load(Key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}

// Add inserts e, replacing any entry with the same run ID, and returns the
// ranked list after the insert.
func (b *Board) Add(e Entry) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, err := b.load()
	if err != nil {
		return nil, err
	}
	next := make([]Entry, 0, len(cur)+1)
	next = append(next, e)
	for _, c := range cur {
		if c.RunID != e.RunID {
			next = append(next, c)
		}
	}
	Rank(next)
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	data, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode scoreboard: %w", err)
	}
	if err := b.kv.Save(Key, string(data)); err != nil {
		return nil, err
	}
	return next, nil
}

// List returns the ranked entries.
func (b *Board) List() ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

// Get returns the entry for runID.
func (b *Board) Get(runID string) (Entry, error) {
	entries, err := b.List()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.RunID == runID {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Clear removes every entry.
func (b *Board) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kv.Delete(Key)
}

// Rank orders entries by score, then duration, then recency, all descending.
func Rank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, c := entries[i], entries[j]
		if a.FinalScore != c.FinalScore {
			return a.FinalScore > c.FinalScore
		}
		if a.DurationSec != c.DurationSec {
			return a.DurationSec > c.DurationSec
		}
		return a.EndedAt.After(c.EndedAt)
	})
}
