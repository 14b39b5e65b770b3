package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/canopy-network/queuescaler/app/scaler"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := scaler.Initialize(ctx)
	if err != nil {
		// already logged by Initialize
		os.Exit(1)
	}

	// Setup server
	app.SetupServer()

	// Start cron scheduler, with an immediate pass
	app.StartCron()
	go app.RunOnce()

	// Start server
	app.Start(ctx)
}
