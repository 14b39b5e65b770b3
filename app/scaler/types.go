package scaler

import "github.com/canopy-network/queuescaler/pkg/scaling"

// TickStatus is how far a tick got.
type TickStatus string

const (
	TickQueueUnhealthy        TickStatus = "queue_unhealthy"
	TickOrchestratorUnhealthy TickStatus = "orchestrator_unhealthy"
	TickObserveFailed         TickStatus = "observe_failed"
	TickDecideFailed          TickStatus = "decide_failed"
	TickApplyFailed           TickStatus = "apply_failed"
	TickScaled                TickStatus = "scaled"
)

// Outcome is returned by every tick. Only TickScaled changed the deployment.
type Outcome struct {
	Status   TickStatus
	Depth    int64
	Decision scaling.Decision
	// Throughput is only set on TickScaled.
	Throughput float64
	Err        error
}
