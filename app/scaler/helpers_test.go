package scaler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/canopy-network/queuescaler/pkg/scaling"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	clocktesting "k8s.io/utils/clock/testing"
)

type stubQueue struct {
	mu      sync.Mutex
	depth   int64
	err     error
	pingErr error
	reads   int
}

func (q *stubQueue) Length(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reads++
	return q.depth, q.err
}

func (q *stubQueue) Ping(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pingErr
}

func (q *stubQueue) Close() error { return nil }

func (q *stubQueue) set(depth int64, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.depth, q.err = depth, err
}

// stubProvider wraps FakeProvider with injectable failures.
type stubProvider struct {
	*FakeProvider
	setErr  error
	pingErr error
	sets    []int32
	pings   int
}

func (p *stubProvider) SetReplicas(ctx context.Context, n int32) error {
	if p.setErr != nil {
		return p.setErr
	}
	p.sets = append(p.sets, n)
	return p.FakeProvider.SetReplicas(ctx, n)
}

func (p *stubProvider) Ping(context.Context) error {
	p.pings++
	return p.pingErr
}

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	app      *App
	queue    *stubQueue
	provider *stubProvider
	clock    *clocktesting.FakeClock
}

func newHarness(t *testing.T, minR, maxR int32) *harness {
	t.Helper()
	return newHarnessWithLogger(t, zaptest.NewLogger(t), minR, maxR)
}

func newHarnessWithLogger(t *testing.T, logger *zap.Logger, minR, maxR int32) *harness {
	t.Helper()
	cfg := scaling.DefaultConfig()
	cfg.MinReplicas = minR
	cfg.MaxReplicas = maxR

	clk := clocktesting.NewFakeClock(epoch)
	q := &stubQueue{}
	p := &stubProvider{FakeProvider: NewFakeProvider(logger, minR)}

	app, err := New(Settings{Scaling: cfg, HealthPort: 8000, CallTimeout: time.Second}, logger, q, p, clk)
	require.NoError(t, err)
	return &harness{app: app, queue: q, provider: p, clock: clk}
}
