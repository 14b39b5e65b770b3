package scaler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/canopy-network/queuescaler/pkg/health"
	"github.com/canopy-network/queuescaler/pkg/logging"
	"github.com/canopy-network/queuescaler/pkg/metrics"
	"github.com/canopy-network/queuescaler/pkg/queue"
	"github.com/canopy-network/queuescaler/pkg/scaling"
	"github.com/canopy-network/queuescaler/pkg/tracing"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	defaultCallTimeout = 10 * time.Second
	tracerName         = "github.com/canopy-network/queuescaler/app/scaler"
)

// App observes the queue backlog and right-sizes the deployment through a
// Provider, every Cron tick.
type App struct {
	Settings Settings

	Queue    queue.LengthProvider
	Provider Provider
	Health   *health.Gate

	Throughput *scaling.ThroughputEstimator
	Clock      clock.PassiveClock

	// Cron is the scheduler that triggers Tick every ScaleInterval.
	Cron     *cron.Cron
	CronSpec string
	tickJob  cron.EntryID

	// Registry holds the pull gauges served on /metrics.
	Registry *prometheus.Registry

	Logger *zap.Logger
	// LogLevel, when set, is served on /log/level for runtime changes.
	LogLevel *zap.AtomicLevel

	Tracer          trace.Tracer
	shutdownTracing tracing.ShutdownFunc

	// Server is the HTTP server for health and metrics.
	Server *http.Server

	// lastScaleDown is written only by Tick; cron runs one tick at a time.
	lastScaleDown time.Time

	// last observed values, sampled by the metrics scraper
	depth    atomic.Int64
	replicas atomic.Int64
}

var _ metrics.Source = (*App)(nil)

// New wires an App from already constructed collaborators.
func New(settings Settings, logger *zap.Logger, q queue.LengthProvider, p Provider, clk clock.PassiveClock) (*App, error) {
	if _, err := scaling.NewConfig(settings.Scaling); err != nil {
		return nil, err
	}
	if settings.CallTimeout <= 0 {
		settings.CallTimeout = defaultCallTimeout
	}
	now := clk.Now()
	app := &App{
		Settings:      settings,
		Queue:         q,
		Provider:      p,
		Health:        health.NewGate(logger, clk, q.Ping, p.Ping),
		Throughput:    scaling.NewThroughputEstimator(now),
		Clock:         clk,
		CronSpec:      fmt.Sprintf("@every %s", settings.Scaling.ScaleInterval),
		Registry:      prometheus.NewRegistry(),
		Logger:        logger.With(zap.String("component", "scaler")),
		Tracer:        otel.Tracer(tracerName),
		lastScaleDown: now,
	}

	if err := metrics.Register(app.Registry, app); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return app, nil
}

// Initialize builds the App from the environment. Failures are logged
// before they are returned.
func Initialize(ctx context.Context) (*App, error) {
	logger, level, err := logging.Build(logging.OptionsFromEnv())
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	settings, err := LoadSettings()
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return nil, err
	}

	shutdownTracing, err := tracing.Setup(ctx, logger)
	if err != nil {
		logger.Error("tracing setup failed", zap.Error(err))
		return nil, err
	}

	// fail releases whatever was built so far
	var closers []func() error
	fail := func(msg string, err error) (*App, error) {
		logger.Error(msg, zap.Error(err))
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		_ = shutdownTracing(context.Background())
		return nil, err
	}

	q, err := queue.New(logger, settings.Queue)
	if err != nil {
		return fail("queue backend setup failed", err)
	}
	closers = append(closers, q.Close)

	var p Provider
	switch settings.Orchestrator {
	case OrchestratorFake:
		p = NewFakeProvider(logger, settings.Scaling.MinReplicas)
	default:
		if p, err = NewK8sProvider(logger, settings.Namespace, settings.Deployment); err != nil {
			return fail("orchestrator setup failed", err)
		}
	}
	closers = append(closers, p.Close)

	app, err := New(settings, logger, q, p, clock.RealClock{})
	if err != nil {
		return fail("scaler setup failed", err)
	}
	app.LogLevel = &level
	app.shutdownTracing = shutdownTracing

	if err := app.SetupScheduler(ctx, logging.NewCronAdapter(logger)); err != nil {
		return fail("scheduler setup failed", err)
	}

	app.Logger.Info("scaler initialized",
		zap.String("queue_backend", settings.Queue.Backend),
		zap.String("queue", settings.Queue.Name),
		zap.String("orchestrator", settings.Orchestrator),
		zap.String("namespace", settings.Namespace),
		zap.String("deployment", settings.Deployment),
		zap.Int64("messages_per_pod", settings.Scaling.MessagesPerPod),
		zap.Int32("min_replicas", settings.Scaling.MinReplicas),
		zap.Int32("max_replicas", settings.Scaling.MaxReplicas),
		zap.Duration("min_ttl", settings.Scaling.MinTTL),
		zap.Duration("scale_interval", settings.Scaling.ScaleInterval),
	)
	return app, nil
}

// SetupScheduler sets up the cron scheduler. Overlapping ticks are skipped.
func (a *App) SetupScheduler(ctx context.Context, logger cron.Logger) error {
	a.Cron = cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	id, err := a.Cron.AddFunc(a.CronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, a.tickTimeout())
		defer cancel()
		a.Tick(rctx)
	})
	if err != nil {
		return err
	}
	a.tickJob = id
	return nil
}

// RunOnce runs the scheduled job immediately through the same cron chain,
// so it is skipped rather than overlapped if a tick is already in flight.
func (a *App) RunOnce() {
	if e := a.Cron.Entry(a.tickJob); e.Valid() {
		e.WrappedJob.Run()
	}
}

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Handle("/status", a.Health.StatusHandler()).Methods(http.MethodGet)
	if a.LogLevel != nil {
		r.Handle("/log/level", a.LogLevel).Methods(http.MethodGet, http.MethodPut)
	}
	r.PathPrefix("/").Handler(a.Health.Handler()).Methods(http.MethodGet)

	a.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Settings.HealthPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("cron started", zap.String("cronSpec", a.CronSpec))
}

// StopCron waits for a running tick, then releases the collaborators.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	if err := a.Queue.Close(); err != nil {
		a.Logger.Warn("queue close failed", zap.Error(err))
	}
	_ = a.Provider.Close()
}

// Start serves HTTP until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	go func() {
		a.Logger.Info("starting health check server", zap.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("health check server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()

	a.Logger.Info("shutting down…")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(sctx)
	a.StopCron()
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(sctx); err != nil {
			a.Logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}
}

// CurrentQueueDepth implements metrics.Source.
func (a *App) CurrentQueueDepth() float64 { return float64(a.depth.Load()) }

// CurrentReplicaCount implements metrics.Source.
func (a *App) CurrentReplicaCount() float64 { return float64(a.replicas.Load()) }

// CurrentThroughput implements metrics.Source.
func (a *App) CurrentThroughput() float64 { return a.Throughput.Rate() }

// LastScaleDown returns when the deployment was last scaled below the floor.
// Only safe to call when no tick is running.
func (a *App) LastScaleDown() time.Time { return a.lastScaleDown }

func (a *App) tickTimeout() time.Duration {
	// two probes, one backlog read, one apply, one read-back
	return 2*health.DefaultProbeTimeout + 3*a.Settings.CallTimeout
}
