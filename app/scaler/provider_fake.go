package scaler

import (
	"context"
	"fmt"
	"sync"

	"github.com/canopy-network/queuescaler/pkg/scaling"
	"go.uber.org/zap"
)

// FakeProvider keeps the replica count in memory. Useful for running the
// controller without a cluster.
type FakeProvider struct {
	mu       sync.Mutex
	replicas int32
	logger   *zap.Logger
}

var _ Provider = (*FakeProvider)(nil)

// NewFakeProvider creates a new fake provider starting at initial replicas.
func NewFakeProvider(logger *zap.Logger, initial int32) *FakeProvider {
	return &FakeProvider{replicas: initial, logger: logger.With(zap.String("component", "fake_provider"))}
}

// CurrentReplicas returns the stored count.
func (p *FakeProvider) CurrentReplicas(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.replicas, nil
}

// SetReplicas stores n.
func (p *FakeProvider) SetReplicas(_ context.Context, n int32) error {
	if n < 0 {
		return fmt.Errorf("%w: negative replica count %d", scaling.ErrAPI, n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Info("scale", zap.Int32("from", p.replicas), zap.Int32("to", n))
	p.replicas = n
	return nil
}

// Ping always succeeds.
func (p *FakeProvider) Ping(context.Context) error { return nil }

// Close is a no-op.
func (p *FakeProvider) Close() error { return nil }
