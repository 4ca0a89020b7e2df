package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/shoreline-tide-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/shoreline-tide-etl/internal/config"
	"github.com/couchcryptid/shoreline-tide-etl/internal/observability"
	"github.com/couchcryptid/shoreline-tide-etl/internal/pipeline"
)

type correctOptions struct {
	settings string
	dataset  string
	output   string
	jsonOut  bool
}

func newCorrectCmd() *cobra.Command {
	var opts correctOptions
	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Correct one shoreline CSV against a tide series",
		Long: `Reads the shoreline and tide CSV files named in the settings file,
matches every acquisition to the next tide sample, applies the tide
correction to every transect and writes <shoreline>_tide_corr.csv.
Corrected rows are also published to Kafka and Postgres when configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runCorrect(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&opts.settings, "settings", "s", "", "correction settings YAML file")
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "dataset name for published rows (default: shoreline file name)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "corrected CSV path (default: <shoreline>_tide_corr.csv)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the run report as JSON")
	_ = cmd.MarkFlagRequired("settings")
	return cmd
}

// runCorrect writes the report to stdout and logs to stderr, so a --json
// report is the only thing on stdout.
func runCorrect(ctx context.Context, opts correctOptions, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLoggerTo(stderr, cfg.LogLevel, cfg.LogFormat)

	settings, err := config.LoadSettings(opts.settings, cfg.DataDir)
	if err != nil {
		return err
	}
	if settings.ShorelineCSV == "" || settings.TideData == "" {
		return errors.New("settings must name shoreline_csv and tide_data")
	}

	output := opts.output
	if output == "" {
		output = settings.Output
	}
	if output == "" {
		output = csvfile.CorrectedPath(settings.ShorelineCSV)
	}
	dataset := opts.dataset
	if dataset == "" {
		base := filepath.Base(settings.ShorelineCSV)
		dataset = base[:len(base)-len(filepath.Ext(base))]
	}

	sinks, closeSinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	p := pipeline.New(sinks, logger, observability.NewMetricsWith(prometheus.NewRegistry()), cfg.CorrectionWorkers)
	report, err := p.Run(ctx, pipeline.Job{
		Dataset:   dataset,
		Shoreline: csvfile.ShorelineFile{Path: settings.ShorelineCSV, TimeColumn: settings.TimeColumn},
		Reference: csvfile.TideFile{
			Path:        settings.TideData,
			TimeColumn:  settings.TideTimeColumn,
			ValueColumn: settings.TideValueColumn,
		},
		Settings: settings.Correction(),
		Sinks:    []pipeline.Sink{csvfile.Writer{Path: output, TimeColumn: settings.TimeColumn}},
	})
	if err != nil {
		return err
	}
	return printReport(stdout, report, output, opts.jsonOut)
}

func printReport(w io.Writer, report pipeline.Report, output string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "corrected %d rows of %s -> %s (run %s)\n", report.Rows, report.Dataset, output, report.RunID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRANSECT\tSAMPLES\tMEAN CORRECTION\tMIN\tMAX\tMEAN CORRECTED\tSTD")
	for _, s := range report.Summaries {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			s.Transect, s.Samples, s.MeanCorrection, s.MinCorrection, s.MaxCorrection,
			s.MeanCorrected, s.StdDevCorrected)
	}
	return tw.Flush()
}
