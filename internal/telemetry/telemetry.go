// Package telemetry aggregates per-session Telemetry records into a
// cross-session snapshot and exposes a minimal line-oriented text metric
// surface. Metric/trace export (Prometheus, OpenTelemetry, Sentry) stays
// an external collaborator reached through the orchestrator.Sink
// capability; this package hand-rolls only the small counter/gauge/
// histogram surface a caller needs when no such collaborator is wired.
package telemetry

import (
	"fmt"
	"sync"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
)

// Snapshot is the cross-session aggregate: one Aggregator accumulates a
// running total across every session.Telemetry it observes.
type Snapshot struct {
	Sessions            int
	TokensTotal         int
	TimeToFirstTokenSum int64 // nanoseconds, summed; divide by Sessions for an average
	RetriesNetwork      int
	RetriesModel        int
	RetriesRateLimit    int
	ViolationsByRule     map[string]int
	ViolationsBySeverity map[string]int
	ContinuationSessions int
	ContinuationCount    int
	NetworkErrorsByType  map[string]int
}

// Aggregator is an orchestrator.Sink that folds every session's terminal
// Telemetry into a running cross-session Snapshot, and doubles as a
// minimal text metric registry addressable by name.
type Aggregator struct {
	mu       sync.Mutex
	snapshot Snapshot
	registry *Registry
}

// NewAggregator builds an empty Aggregator backed by a fresh metric
// Registry.
func NewAggregator() *Aggregator {
	return &Aggregator{
		snapshot: Snapshot{
			ViolationsByRule:     make(map[string]int),
			ViolationsBySeverity: make(map[string]int),
			NetworkErrorsByType:  make(map[string]int),
		},
		registry: NewRegistry(),
	}
}

// Before is a no-op; live counting happens in After once an event is
// fully formed.
func (a *Aggregator) Before(obs event.Obs) {}

// After bumps the text metric registry's live counters as observability
// events arrive, so a caller scraping the registry mid-session sees
// activity without waiting for a terminal Result. The cross-session
// Snapshot is populated separately, by Record, once a session's
// Result.Telemetry is available.
func (a *Aggregator) After(obs event.Obs) {
	switch obs.Type {
	case event.RetryScheduled:
		a.registry.Counter("retries_scheduled_total").Inc(1)
	case event.GuardrailViolation:
		a.registry.Counter("guardrail_violations_total").Inc(1)
	case event.Fallback:
		a.registry.Counter("fallbacks_total").Inc(1)
	case event.NetworkError:
		a.registry.Counter("network_errors_total").Inc(1)
	case event.Complete:
		a.registry.Counter("sessions_completed_total").Inc(1)
	case event.Failed:
		a.registry.Counter("sessions_failed_total").Inc(1)
	}
}

// OnError increments the registry's session_errors counter; it carries
// no per-kind detail since the caller's terminal Result.Err already
// classifies it.
func (a *Aggregator) OnError(err error) {
	a.registry.Counter("session_errors").Inc(1)
}

// Record folds one session's Telemetry into the running Snapshot. Safe
// to call directly (without routing through Before/After) for callers
// that already hold a *orchestrator.Result.Telemetry.
func (a *Aggregator) Record(t orchestrator.Telemetry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snapshot.Sessions++
	a.snapshot.TokensTotal += t.TokensTotal
	a.snapshot.TimeToFirstTokenSum += int64(t.TimeToFirstToken)
	a.snapshot.RetriesNetwork += t.RetriesNetwork
	a.snapshot.RetriesModel += t.RetriesModel
	a.snapshot.RetriesRateLimit += t.RetriesRateLimit
	for rule, n := range t.ViolationsByRule {
		a.snapshot.ViolationsByRule[rule] += n
	}
	for sev, n := range t.ViolationsBySeverity {
		a.snapshot.ViolationsBySeverity[sev] += n
	}
	if t.ContinuationEnabled {
		a.snapshot.ContinuationSessions++
	}
	a.snapshot.ContinuationCount += t.ContinuationCount
	for kind, n := range t.NetworkErrorsByType {
		a.snapshot.NetworkErrorsByType[kind] += n
	}

	a.registry.Counter("sessions_total").Inc(1)
	a.registry.Counter("tokens_total").Inc(float64(t.TokensTotal))
	a.registry.Counter("retries_total").Inc(float64(t.RetriesNetwork + t.RetriesModel + t.RetriesRateLimit))
	a.registry.Histogram("time_to_first_token_ms").Observe(float64(t.TimeToFirstToken.Milliseconds()))
}

// Snapshot returns a defensive copy of the running cross-session
// aggregate.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.snapshot
	s.ViolationsByRule = copyIntMap(a.snapshot.ViolationsByRule)
	s.ViolationsBySeverity = copyIntMap(a.snapshot.ViolationsBySeverity)
	s.NetworkErrorsByType = copyIntMap(a.snapshot.NetworkErrorsByType)
	return s
}

// Registry returns the metric registry backing this aggregator's
// derived counters/histograms, for direct access or custom metrics.
func (a *Aggregator) Registry() *Registry {
	return a.registry
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String renders the aggregate snapshot as a short human-readable
// summary, useful for CLI output.
func (s Snapshot) String() string {
	avgTTFT := int64(0)
	if s.Sessions > 0 {
		avgTTFT = s.TimeToFirstTokenSum / int64(s.Sessions) / 1_000_000
	}
	return fmt.Sprintf(
		"sessions=%d tokens=%d avg_ttft_ms=%d retries(net=%d,model=%d,rate=%d) continuations=%d/%d",
		s.Sessions, s.TokensTotal, avgTTFT,
		s.RetriesNetwork, s.RetriesModel, s.RetriesRateLimit,
		s.ContinuationSessions, s.Sessions,
	)
}
