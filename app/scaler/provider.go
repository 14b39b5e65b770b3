package scaler

import "context"

// Provider abstracts the orchestrator that runs the worker pool.
// Failures from CurrentReplicas/SetReplicas wrap scaling.ErrAPI; Ping
// failures wrap scaling.ErrConnectivity.
type Provider interface {
	// CurrentReplicas returns the number of replicas currently running.
	CurrentReplicas(ctx context.Context) (int32, error)
	// SetReplicas sets the desired replica count (n >= 0).
	SetReplicas(ctx context.Context, n int32) error
	// Ping checks that the orchestrator API is reachable.
	Ping(ctx context.Context) error
	// Close releases any Provider resources.
	Close() error
}
