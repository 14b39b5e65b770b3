package scaling

import (
	"fmt"
	"time"
)

// Reason explains which branch of the decision produced the target.
type Reason string

const (
	ReasonWithinBounds Reason = "within_bounds"
	ReasonCapped       Reason = "capped"
	ReasonFloorHold    Reason = "floor_hold"
	ReasonBelowFloor   Reason = "below_floor"
)

// Decision is the outcome of one evaluation. Desired is always in [0, MaxReplicas].
type Decision struct {
	// Raw is the unbounded replica count implied by the backlog.
	Raw     int64
	Desired int32
	Reason  Reason
}

// BelowFloor reports whether applying this decision takes the pool under MinReplicas.
func (d Decision) BelowFloor(cfg Config) bool {
	return d.Desired < cfg.MinReplicas
}

// RawReplicas returns depth/messagesPerPod + 1, so at least one replica is
// suggested even for an empty queue.
func RawReplicas(depth, messagesPerPod int64) int64 {
	return depth/messagesPerPod + 1
}

// Decide maps a backlog observation to a target replica count. It is pure:
// the caller owns lastScaleDown and must only move it forward after a
// below-floor decision has actually been applied.
func Decide(depth int64, now, lastScaleDown time.Time, cfg Config) (Decision, error) {
	if err := cfg.Validate(); err != nil {
		return Decision{}, err
	}
	if depth < 0 {
		return Decision{}, fmt.Errorf("%w: negative queue depth %d", ErrInvalidObservation, depth)
	}

	raw := RawReplicas(depth, cfg.MessagesPerPod)
	maxR := int64(cfg.MaxReplicas)

	if raw >= int64(cfg.MinReplicas) {
		if raw > maxR {
			return Decision{Raw: raw, Desired: cfg.MaxReplicas, Reason: ReasonCapped}, nil
		}
		return Decision{Raw: raw, Desired: int32(raw), Reason: ReasonWithinBounds}, nil
	}

	if now.Sub(lastScaleDown) > cfg.MinTTL {
		return Decision{Raw: raw, Desired: int32(clamp(raw, 0, maxR)), Reason: ReasonBelowFloor}, nil
	}
	return Decision{Raw: raw, Desired: cfg.MinReplicas, Reason: ReasonFloorHold}, nil
}

func clamp(v, lo, hi int64) int64 {
	return max(lo, min(v, hi))
}
