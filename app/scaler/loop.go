package scaler

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/queuescaler/pkg/scaling"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Tick runs one pass of the control loop: health gate, observe, decide,
// apply, record. It never panics on dependency failures; every failure
// degrades the tick to a no-op and is reported in the Outcome.
func (a *App) Tick(ctx context.Context) Outcome {
	ctx, span := a.Tracer.Start(ctx, "scaler.tick")
	defer span.End()

	out := a.tick(ctx)

	span.SetAttributes(attribute.String("tick.status", string(out.Status)))
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Status))
	}
	return out
}

func (a *App) tick(ctx context.Context) Outcome {
	now := a.Clock.Now()

	if !a.checkHealth(ctx, "check_queue_health", a.Health.CheckQueue) {
		a.Logger.Warn("queue is not healthy, skipping tick")
		return Outcome{Status: TickQueueUnhealthy, Err: scaling.ErrConnectivity}
	}
	if !a.checkHealth(ctx, "check_orchestrator_health", a.Health.CheckOrchestrator) {
		a.Logger.Warn("orchestrator is not healthy, skipping tick")
		return Outcome{Status: TickOrchestratorUnhealthy, Err: scaling.ErrConnectivity}
	}

	depth, err := a.observe(ctx)
	if err != nil {
		a.Logger.Error("queue length unavailable, skipping tick", zap.Error(err))
		return Outcome{Status: TickObserveFailed, Err: err}
	}
	a.Logger.Info("queue length", zap.Int64("depth", depth))

	cfg := a.Settings.Scaling
	if depth > cfg.MessageThreshold {
		a.Logger.Warn("queue length exceeds threshold",
			zap.Int64("depth", depth),
			zap.Int64("threshold", cfg.MessageThreshold),
			zap.Int64("recommended_replicas", scaling.RawReplicas(depth, cfg.MessagesPerPod)))
	}

	decision, err := scaling.Decide(depth, now, a.lastScaleDown, cfg)
	if err != nil {
		a.Logger.Error("scaling decision failed", zap.Int64("depth", depth), zap.Error(err))
		return Outcome{Status: TickDecideFailed, Depth: depth, Err: err}
	}

	if decision.Reason == scaling.ReasonFloorHold {
		a.Logger.Debug("holding replica floor",
			zap.Int64("raw", decision.Raw),
			zap.Int32("min_replicas", cfg.MinReplicas),
			zap.Time("below_floor_allowed_after", a.nextBelowFloorAllowed()))
	}

	if err := a.apply(ctx, decision.Desired); err != nil {
		a.Logger.Error("scale apply failed, state unchanged",
			zap.Int32("desired", decision.Desired),
			zap.Error(err))
		return Outcome{Status: TickApplyFailed, Depth: depth, Decision: decision, Err: err}
	}
	if decision.BelowFloor(cfg) {
		// restart the TTL window only once a below-floor scale has landed
		a.lastScaleDown = now
	}
	a.Logger.Info("scaled deployment",
		zap.Int64("depth", depth),
		zap.Int64("raw", decision.Raw),
		zap.Int32("desired", decision.Desired),
		zap.String("reason", string(decision.Reason)))

	rate := a.record(ctx, depth, decision.Desired)
	return Outcome{Status: TickScaled, Depth: depth, Decision: decision, Throughput: rate}
}

func (a *App) checkHealth(ctx context.Context, name string, check func(context.Context) bool) bool {
	ctx, span := a.Tracer.Start(ctx, name)
	defer span.End()
	ok := check(ctx)
	span.SetAttributes(attribute.Bool("healthy", ok))
	return ok
}

func (a *App) observe(ctx context.Context) (int64, error) {
	ctx, span := a.Tracer.Start(ctx, "get_queue_length")
	defer span.End()

	cctx, cancel := context.WithTimeout(ctx, a.Settings.CallTimeout)
	defer cancel()

	depth, err := a.Queue.Length(cctx)
	if err == nil && depth < 0 {
		err = fmt.Errorf("%w: queue reported depth %d", scaling.ErrInvalidObservation, depth)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "observe failed")
		return 0, err
	}
	span.SetAttributes(attribute.Int64("queue.depth", depth))
	return depth, nil
}

func (a *App) apply(ctx context.Context, replicas int32) error {
	ctx, span := a.Tracer.Start(ctx, "scale_deployment", trace.WithAttributes(attribute.Int("replicas", int(replicas))))
	defer span.End()

	cctx, cancel := context.WithTimeout(ctx, a.Settings.CallTimeout)
	defer cancel()

	if err := a.Provider.SetReplicas(cctx, replicas); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scale failed")
		return err
	}
	return nil
}

// record updates the throughput estimate from this tick's observation and
// refreshes the gauge values. A failed replica read-back keeps the applied
// target as the gauge value.
func (a *App) record(ctx context.Context, depth int64, applied int32) float64 {
	rate := a.Throughput.Update(depth, a.Clock.Now())
	a.depth.Store(depth)

	cctx, cancel := context.WithTimeout(ctx, a.Settings.CallTimeout)
	defer cancel()
	current, err := a.Provider.CurrentReplicas(cctx)
	if err != nil {
		a.Logger.Warn("replica read-back failed", zap.Error(err))
		current = applied
	}
	a.replicas.Store(int64(current))

	a.Logger.Debug("metrics recorded",
		zap.Int64("depth", depth),
		zap.Int32("replicas", current),
		zap.Float64("throughput_per_minute", rate),
		zap.Duration("since_last_scale_down", a.Clock.Since(a.lastScaleDown)))
	return rate
}

// nextBelowFloorAllowed reports when the TTL window closes.
func (a *App) nextBelowFloorAllowed() time.Time {
	return a.lastScaleDown.Add(a.Settings.Scaling.MinTTL)
}
