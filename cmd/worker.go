/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/baymax-health/apiserver/config"
	"github.com/baymax-health/apiserver/internal/metrics"
	"github.com/baymax-health/apiserver/internal/mq"
	"github.com/baymax-health/apiserver/internal/notify"
	"github.com/baymax-health/apiserver/internal/server"
	"github.com/spf13/cobra"
)

var workerMetricsAddr string

// workerCmd represents the low-stock notifier.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes intake events and sends low-stock alerts",
	Long: `Consumes intake events from MQ_BACKEND and e-mails a refill reminder when a
medicine's remaining pills cover fewer than LOW_STOCK_DAYS days. Without
SENDGRID_API_KEY the alerts are only logged. With MQ_BACKEND=local the
server runs the notifier itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		switch cfg.MQBackend {
		case config.MQNone, "":
			return errors.New("the worker needs MQ_BACKEND set to rabbitmq or pubsub")
		case config.MQLocal:
			return errors.New("MQ_BACKEND=local runs the notifier inside `baymax server`, no worker is needed")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stores, err := server.OpenStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = stores.Close(context.Background()) }()

		queue, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer queue.Close()

		mailer := notify.NewMailer(ctx, cfg.Mail)

		m := metrics.New()
		if workerMetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			metricsServer := &http.Server{Addr: workerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.ErrorContext(ctx, "Metrics server failed", slog.Any("err", err))
				}
			}()
			defer metricsServer.Close()
		}

		notifier := notify.New(stores.Users, mailer, cfg.Mail.LowStockDays, m, cfg.Location())
		if err := notifier.Run(ctx, queue, cfg.IntakeTopic); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("while consuming %s: %w", cfg.IntakeTopic, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().StringVar(&workerMetricsAddr, "metrics-addr", ":9091", "Address to serve /metrics on, empty to disable")
}
