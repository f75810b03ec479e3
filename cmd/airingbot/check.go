package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amaumene/airingbot/internal/di"
	"github.com/amaumene/airingbot/internal/telemetry"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one check cycle now and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			shutdownTracing, err := telemetry.Setup(cfg.TracingEnabled, os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = shutdownTracing(context.Background()) }()

			app, cleanup, err := di.InitializeApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer cleanup()

			report, err := app.Checks.RunCycle(cmd.Context())
			if err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{
				"cycle_id":          report.ID,
				"entries":           report.Entries,
				"notified":          report.Notified,
				"suppressed":        report.Suppressed,
				"lookup_failures":   report.LookupFailures,
				"delivery_failures": report.DeliveryFailures,
			}).Info("Check finished")
			return nil
		},
	}
}
