package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tomasbasham/guardcall"
	httpAdapter "github.com/tomasbasham/guardcall/internal/adapters/http"
	redisAdapter "github.com/tomasbasham/guardcall/internal/adapters/redis"
	"github.com/tomasbasham/guardcall/internal/alerting"
	"github.com/tomasbasham/guardcall/internal/config"
	"github.com/tomasbasham/guardcall/internal/logging"
	"github.com/tomasbasham/guardcall/internal/metrics"
	"github.com/tomasbasham/guardcall/notify"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the alerting HTTP server",
	Long: `Starts the guardcall service: alert ingestion and acknowledgment over HTTP,
SMS fan-out, and the voice-call escalation scheduler.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Error("failed to load config", "err", err)
			os.Exit(1)
		}

		store := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

		var notifier notify.Notifier
		if cfg.Twilio.AccountSID != "" {
			notifier = notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
		} else {
			logger.Warn("no twilio credentials configured, deliveries will only be logged")
			notifier = &notify.Log{Logger: logger}
		}

		scheduler := guardcall.New(
			guardcall.WithLogger(logger),
			guardcall.WithMetricsHook(metrics.NewHook(prometheus.DefaultRegisterer)),
		)

		service := alerting.NewService(store, notifier, scheduler, logger, alerting.Config{
			EscalationDelay:    time.Duration(cfg.EscalationDelay),
			BaseURL:            cfg.BaseURL,
			DefaultCountryCode: cfg.DefaultCountryCode,
		})

		srv := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: httpAdapter.NewHandler(service),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting guardcall server", "addr", srv.Addr, "escalation_delay", time.Duration(cfg.EscalationDelay))
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			logger.Error("server error", "err", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("starting shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("failed to close server", "err", err)
				}
			}

			// Drop pending escalations and wait for in-flight deliveries.
			scheduler.Close()
			logger.Info("guardcall server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
