// Command tidecorr corrects satellite-derived shoreline positions for the
// tide level at acquisition time. It runs one correction from a settings
// file or serves corrections over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/shoreline-tide-etl/internal/adapter/kafka"
	"github.com/couchcryptid/shoreline-tide-etl/internal/adapter/postgres"
	"github.com/couchcryptid/shoreline-tide-etl/internal/config"
	"github.com/couchcryptid/shoreline-tide-etl/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tidecorr",
		Short:        "Tide-correct shoreline time series",
		SilenceUsage: true,
	}
	root.AddCommand(newCorrectCmd(), newServeCmd(), newValidateCmd())
	return root
}

// openSinks connects the optional Kafka and Postgres sinks. The returned
// close function releases whatever was opened.
func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, func(), error) {
	var (
		sinks   []pipeline.Sink
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("sink close error", "error", err)
			}
		}
	}

	if cfg.KafkaEnabled() {
		w := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, w)
		closers = append(closers, w.Close)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if cfg.PostgresEnabled() {
		store, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("postgres sink: %w", err)
		}
		sinks = append(sinks, store)
		closers = append(closers, store.Close)
		logger.Info("postgres sink enabled")
	}
	return sinks, closeAll, nil
}
