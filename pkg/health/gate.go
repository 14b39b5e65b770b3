// Package health tracks the last probe result of each dependency the
// controller needs, and serves the aggregate over HTTP.
package health

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	// DefaultProbeTimeout bounds every probe.
	DefaultProbeTimeout = 10 * time.Second

	Queue        = "queue"
	Orchestrator = "orchestrator"
)

// Probe checks connectivity to one dependency.
type Probe func(ctx context.Context) error

// Status is the last recorded probe result for one dependency.
type Status struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Gate holds two independent health flags, one per dependency. Writes come
// from the control loop; reads may come from any goroutine.
type Gate struct {
	logger  *zap.Logger
	clock   clock.PassiveClock
	timeout time.Duration

	queueProbe        Probe
	orchestratorProbe Probe

	statuses *xsync.Map[string, Status]
}

// NewGate creates a gate that reports unhealthy until both probes have passed.
func NewGate(logger *zap.Logger, clk clock.PassiveClock, queueProbe, orchestratorProbe Probe) *Gate {
	return &Gate{
		logger:            logger.With(zap.String("component", "health_gate")),
		clock:             clk,
		timeout:           DefaultProbeTimeout,
		queueProbe:        queueProbe,
		orchestratorProbe: orchestratorProbe,
		statuses:          xsync.NewMap[string, Status](),
	}
}

// WithTimeout overrides the probe timeout.
func (g *Gate) WithTimeout(d time.Duration) *Gate {
	g.timeout = d
	return g
}

// CheckQueue probes the queue system and records the result.
func (g *Gate) CheckQueue(ctx context.Context) bool {
	return g.check(ctx, Queue, g.queueProbe)
}

// CheckOrchestrator probes the orchestrator API and records the result.
func (g *Gate) CheckOrchestrator(ctx context.Context) bool {
	return g.check(ctx, Orchestrator, g.orchestratorProbe)
}

// Healthy is true only when the most recent probe of both dependencies passed.
func (g *Gate) Healthy() bool {
	return g.healthy(Queue) && g.healthy(Orchestrator)
}

// Statuses returns a copy of the recorded results keyed by dependency.
func (g *Gate) Statuses() map[string]Status {
	out := make(map[string]Status, 2)
	g.statuses.Range(func(name string, s Status) bool {
		out[name] = s
		return true
	})
	return out
}

func (g *Gate) healthy(name string) bool {
	s, ok := g.statuses.Load(name)
	return ok && s.Healthy
}

func (g *Gate) check(ctx context.Context, name string, probe Probe) bool {
	pctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := g.clock.Now()
	err := probe(pctx)
	status := Status{Healthy: err == nil, CheckedAt: g.clock.Now()}
	if err != nil {
		status.Error = err.Error()
		g.logger.Error("health check failed",
			zap.String("dependency", name),
			zap.Duration("timeout", g.timeout),
			zap.Error(err))
	} else {
		g.logger.Debug("health check succeeded",
			zap.String("dependency", name),
			zap.Duration("elapsed", g.clock.Since(start)))
	}
	g.statuses.Store(name, status)
	return status.Healthy
}
