package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/amaumene/airingbot/internal/di"
	"github.com/amaumene/airingbot/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the check scheduler and the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	// 1. Load configuration and setup logger
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	logger.Info("Starting airingbot")

	// 2. Setup tracing
	shutdownTracing, err := telemetry.Setup(cfg.TracingEnabled, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	// 3. Wire the application (opens the store, logs in to Telegram)
	app, cleanup, err := di.InitializeApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	// 4. Register bot commands
	if err := app.Telegram.RegisterCommands(app.Commands); err != nil {
		logger.WithError(err).Warn("Failed to register command menu, commands still work")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start HTTP server
	serverErrChan := make(chan error, 1)
	go func() {
		if err := app.Server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 6. Poll Telegram; the scheduler starts once the bot is ready
	schedulerErrChan := make(chan error, 1)
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		app.Telegram.Run(ctx, func() {
			if err := app.Scheduler.Start(); err != nil {
				schedulerErrChan <- err
				return
			}
			if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				logger.WithError(err).Warn("Failed to notify systemd")
			}
		})
	}()

	logger.Info("airingbot is running")

	// 7. Wait for shutdown signal
	var runErr error
	select {
	case err := <-serverErrChan:
		runErr = err
	case err := <-schedulerErrChan:
		runErr = fmt.Errorf("failed to start scheduler: %w", err)
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	stop()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Scheduler.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during scheduler shutdown")
	}

	select {
	case <-botDone:
	case <-shutdownCtx.Done():
		logger.Warn("Telegram poller did not stop in time")
	}

	logger.Info("airingbot stopped")
	return runErr
}
