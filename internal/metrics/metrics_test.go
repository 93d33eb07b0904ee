package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archops-sim/internal/sim"
	"archops-sim/internal/telemetry"
)

func TestObserveState(t *testing.T) {
	m := New()
	m.ObserveState(telemetry.StateRow{Budget: 2500, Rating: 4.1, Backlog: 3, TimeSec: 42})
	assert.Equal(t, 2500.0, testutil.ToFloat64(m.budget))
	assert.Equal(t, 4.1, testutil.ToFloat64(m.rating))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.backlog))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.simTime))
}

func TestObserveEventsAndRuns(t *testing.T) {
	m := New()
	m.ObserveEvent(telemetry.EventRow{Type: sim.EventNotice, Category: sim.CategoryIncident})
	m.ObserveEvent(telemetry.EventRow{Type: sim.EventNotice, Category: sim.CategoryOther})
	m.ObserveEvent(telemetry.EventRow{Type: sim.EventPurchase})
	m.ObserveTick(2 * time.Millisecond)
	m.ObserveRun(telemetry.RunRow{EndReason: "RATING_COLLAPSED", FinalScore: 300})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(sim.EventNotice)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(sim.EventPurchase)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.incidents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("RATING_COLLAPSED")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.finalScore))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveState(telemetry.StateRow{Budget: 10})
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "archops_run_budget 10"), "budget gauge missing")
	assert.True(t, strings.Contains(text, "go_goroutines"), "runtime collector missing")
}

func TestInstancesDoNotCollide(t *testing.T) {
	a, b := New(), New()
	a.ObserveTick(time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ticks))
}
