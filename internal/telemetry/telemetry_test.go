package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_RecordAccumulatesAcrossSessions(t *testing.T) {
	agg := NewAggregator()

	agg.Record(orchestrator.Telemetry{
		TokensTotal:          10,
		TimeToFirstToken:     50 * time.Millisecond,
		RetriesNetwork:       1,
		ViolationsByRule:     map[string]int{"profanity": 2},
		ViolationsBySeverity: map[string]int{"error": 2},
		ContinuationEnabled:  true,
		ContinuationCount:    1,
		NetworkErrorsByType:  map[string]int{"timeout": 1},
	})
	agg.Record(orchestrator.Telemetry{
		TokensTotal:      20,
		TimeToFirstToken: 150 * time.Millisecond,
		RetriesModel:     2,
	})

	snap := agg.Snapshot()
	require.Equal(t, 2, snap.Sessions)
	assert.Equal(t, 30, snap.TokensTotal)
	assert.Equal(t, 1, snap.RetriesNetwork)
	assert.Equal(t, 2, snap.RetriesModel)
	assert.Equal(t, 2, snap.ViolationsByRule["profanity"])
	assert.Equal(t, 1, snap.ContinuationSessions)
	assert.Equal(t, 1, snap.NetworkErrorsByType["timeout"])
}

func TestAggregator_SnapshotIsADefensiveCopy(t *testing.T) {
	agg := NewAggregator()
	agg.Record(orchestrator.Telemetry{ViolationsByRule: map[string]int{"x": 1}})

	snap := agg.Snapshot()
	snap.ViolationsByRule["x"] = 99

	assert.Equal(t, 1, agg.Snapshot().ViolationsByRule["x"])
}

func TestAggregator_AfterBumpsLiveRegistryCounters(t *testing.T) {
	agg := NewAggregator()

	agg.After(event.Obs{Type: event.RetryScheduled})
	agg.After(event.Obs{Type: event.RetryScheduled})
	agg.After(event.Obs{Type: event.GuardrailViolation})
	agg.After(event.Obs{Type: event.FirstToken}) // untracked type, no-op

	assert.Equal(t, float64(2), agg.Registry().Counter("retries_scheduled_total").Value())
	assert.Equal(t, float64(1), agg.Registry().Counter("guardrail_violations_total").Value())
}

func TestRegistry_RenderIncludesEveryMetricKind(t *testing.T) {
	r := NewRegistry()
	r.Counter("requests_total").Inc(5)
	r.Gauge("queue_depth").Set(3)
	r.Histogram("latency_ms").Observe(10)
	r.Histogram("latency_ms").Observe(20)

	out := r.Render()

	assert.True(t, strings.Contains(out, "requests_total"))
	assert.True(t, strings.Contains(out, "queue_depth"))
	assert.True(t, strings.Contains(out, "latency_ms_count 2"))
	assert.True(t, strings.Contains(out, "latency_ms_mean 15"))
}

func TestRegistry_NamesFiltersByPrefix(t *testing.T) {
	r := NewRegistry()
	r.Counter("session_errors").Inc(1)
	r.Counter("session_retries").Inc(1)
	r.Gauge("queue_depth").Set(1)

	names := r.Names("session_")

	assert.ElementsMatch(t, []string{"session_errors", "session_retries"}, names)
}

func TestCounter_WithLabelsRendersLabelSet(t *testing.T) {
	r := NewRegistry()
	r.Counter("http_requests").WithLabels(map[string]string{"method": "GET"}).Inc(1)

	out := r.Render()

	assert.True(t, strings.Contains(out, `method="GET"`))
}
