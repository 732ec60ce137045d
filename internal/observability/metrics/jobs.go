// Package metrics names the engine's counters so emission sites stay
// consistent across services.
package metrics

import (
	"time"

	"github.com/subsentry/subsentry-api/internal/observability/statsd"
)

// Recorder emits the engine's domain metrics to a StatsD sink. A nil
// Recorder is a no-op.
type Recorder struct {
	sink statsd.Sink
}

// NewRecorder creates a Recorder over the given sink.
func NewRecorder(sink statsd.Sink) *Recorder {
	if sink == nil {
		return nil
	}
	return &Recorder{sink: sink}
}

// TransitionApplied counts a committed status transition.
func (r *Recorder) TransitionApplied(from, to string) {
	if r == nil {
		return
	}
	r.sink.Count("jobs.transition", 1, map[string]string{"from": from, "to": to})
}

// TransitionConflict counts a lost compare-and-set race.
func (r *Recorder) TransitionConflict() {
	if r == nil {
		return
	}
	r.sink.Count("jobs.transition_conflict", 1, nil)
}

// ClaimProcessed counts the outcome of one claim batch.
func (r *Recorder) ClaimProcessed(claimed, blocked int) {
	if r == nil {
		return
	}
	r.sink.Count("claims.claimed", int64(claimed), nil)
	r.sink.Count("claims.blocked", int64(blocked), nil)
}

// SettlementApplied counts an applied payment settlement.
func (r *Recorder) SettlementApplied(kind string) {
	if r == nil {
		return
	}
	r.sink.Count("payments.settled", 1, map[string]string{"kind": kind})
}

// AutoResume counts an account reactivated by a settlement.
func (r *Recorder) AutoResume() {
	if r == nil {
		return
	}
	r.sink.Count("payments.auto_resume", 1, nil)
}

// RequestDuration records an HTTP handler timing.
func (r *Recorder) RequestDuration(route string, d time.Duration) {
	if r == nil {
		return
	}
	r.sink.Timing("http.request", d, map[string]string{"route": route})
}
