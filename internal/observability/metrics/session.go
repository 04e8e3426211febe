package metrics

import (
	"time"

	obserrors "github.com/hustlehub/hustle-hub-app/internal/observability/errors"
	"github.com/hustlehub/hustle-hub-app/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultApplied   = "applied"
	ResultStale     = "stale"
	ResultAnonymous = "anonymous"
)

// RefreshMetric captures the outcome of one "who am I" query.
type RefreshMetric struct {
	Result   string
	Duration time.Duration
	Err      error
}

// EmitRefresh emits session.refresh counters and timings.
func EmitRefresh(sink statsd.Sink, in RefreshMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("session.refresh", 1, tags)
	if in.Duration > 0 {
		sink.Timing("session.refresh.duration", in.Duration, CloneTags(tags))
	}
}

// EmitIdentityChange counts transitions between identity states.
func EmitIdentityChange(sink statsd.Sink, from, to string) {
	if sink == nil {
		return
	}
	sink.Count("session.identity_change", 1, map[string]string{"from": from, "to": to})
}

// EmitSubscribers records the number of live identity subscriptions.
func EmitSubscribers(sink statsd.Sink, n int) {
	if sink == nil {
		return
	}
	sink.Gauge("session.subscribers", float64(n), nil)
}

// GuardMetric captures a single guard evaluation.
type GuardMetric struct {
	Guard   string
	Outcome string
	Wait    time.Duration
}

// EmitGuardDecision emits guard.decision and, when the guard had to wait for resolution, guard.wait.
func EmitGuardDecision(sink statsd.Sink, in GuardMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"guard": in.Guard, "outcome": in.Outcome}
	sink.Count("guard.decision", 1, tags)
	if in.Wait > 0 {
		sink.Timing("guard.wait", in.Wait, CloneTags(tags))
	}
}

// MutationMetric captures a login/register/logout call.
type MutationMetric struct {
	Op       string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitMutation emits auth.mutation counters and timings.
func EmitMutation(sink statsd.Sink, in MutationMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"op": in.Op, "result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.mutation", 1, tags)
	if in.Duration > 0 {
		sink.Timing("auth.mutation.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
