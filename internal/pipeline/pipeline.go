package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
	"github.com/couchcryptid/shoreline-tide-etl/internal/observability"
)

// ShorelineSource loads the raw shoreline table of a job.
type ShorelineSource interface {
	LoadShoreline(ctx context.Context) (domain.ShorelineTable, error)
}

// ReferenceSource loads the reference tide series of a job.
type ReferenceSource interface {
	LoadReference(ctx context.Context) (domain.Series[float64], error)
}

// Sink receives every corrected table.
type Sink interface {
	Name() string
	Write(ctx context.Context, dataset string, table domain.CorrectedTable) error
}

// ShorelineFunc adapts a function to a ShorelineSource.
type ShorelineFunc func(ctx context.Context) (domain.ShorelineTable, error)

func (f ShorelineFunc) LoadShoreline(ctx context.Context) (domain.ShorelineTable, error) {
	return f(ctx)
}

// Job describes one correction run.
type Job struct {
	Dataset   string
	Shoreline ShorelineSource
	Reference ReferenceSource
	Settings  domain.CorrectionSettings

	// Sinks are written before the pipeline's own sinks. The CSV output of a
	// file based run goes here.
	Sinks []Sink
}

// Report describes a successful run.
type Report struct {
	RunID       string                   `json:"run_id"`
	Dataset     string                   `json:"dataset"`
	Rows        int                      `json:"rows"`
	Transects   []string                 `json:"transects"`
	Summaries   []domain.TransectSummary `json:"summaries"`
	Sinks       []string                 `json:"sinks"`
	ProcessedAt time.Time                `json:"processed_at"`
	Duration    time.Duration            `json:"duration_ns"`

	Table domain.CorrectedTable `json:"-"`
}

// LoadError reports a source that failed to load.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Source, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// SinkError reports a sink that failed to accept a corrected table.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string { return fmt.Sprintf("sink %s: %v", e.Sink, e.Err) }

func (e *SinkError) Unwrap() error { return e.Err }

// Pipeline orchestrates the load-resolve-correct-write run.
type Pipeline struct {
	sinks   []Sink
	logger  *slog.Logger
	metrics *observability.Metrics
	workers int
	ready   atomic.Bool
}

// New creates a Pipeline writing to sinks after each job's own sinks.
// workers bounds per-transect concurrency; 0 uses GOMAXPROCS.
func New(sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, workers int) *Pipeline {
	return &Pipeline{
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
		workers: workers,
	}
}

// CheckReadiness returns nil once a run has succeeded, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no correction run has completed yet")
	}
	return nil
}

// Ready reports whether a run has succeeded.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// MarkReady marks the pipeline ready without a run, for services whose
// first request is the first run.
func (p *Pipeline) MarkReady() { p.ready.Store(true) }

// Run executes one job. Any failure aborts the run; sinks written before a
// failing sink are not rolled back.
func (p *Pipeline) Run(ctx context.Context, job Job) (Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.logger.With("dataset", job.Dataset, "run_id", runID)

	report, err := p.run(ctx, log, job)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := failureKind(err)
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		p.metrics.RunFailures.WithLabelValues(kind).Inc()
		log.Error("correction run failed", "error", err, "kind", kind)
		return Report{}, err
	}

	report.RunID = runID
	report.Duration = time.Since(start)
	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RowsCorrected.Add(float64(report.Rows))
	p.metrics.LastSuccessRun.Set(float64(report.ProcessedAt.Unix()))
	p.ready.Store(true)
	log.Info("correction run complete",
		"rows", report.Rows,
		"transects", len(report.Transects),
		"sinks", report.Sinks,
		"duration", report.Duration,
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, job Job) (Report, error) {
	table, ref, err := load(ctx, job)
	if err != nil {
		return Report{}, err
	}
	log.Info("inputs loaded",
		"rows", table.Len(),
		"transects", len(table.Transects),
		"tide_samples", ref.Len(),
	)

	if err := table.Validate(); err != nil {
		return Report{}, err
	}
	if err := domain.CheckZoning(table.Zoning, ref.Zoning); err != nil {
		return Report{}, err
	}
	if err := job.Settings.Validate(table); err != nil {
		return Report{}, err
	}

	resolveStart := time.Now()
	tides, err := domain.Resolve(table.Times, ref, domain.WithProgress(progressLogger(log)))
	if err != nil {
		return Report{}, err
	}
	p.metrics.ResolveDuration.Observe(time.Since(resolveStart).Seconds())
	p.metrics.TidesResolved.Add(float64(len(tides)))

	correctStart := time.Now()
	corrected, err := domain.Correct(table,
		domain.Series[float64]{Times: table.Times, Values: tides},
		job.Settings,
		domain.WithWorkers(p.workers),
	)
	if err != nil {
		return Report{}, err
	}
	p.metrics.CorrectDuration.Observe(time.Since(correctStart).Seconds())

	sinks := append(append([]Sink(nil), job.Sinks...), p.sinks...)
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		if err := s.Write(ctx, job.Dataset, corrected); err != nil {
			p.metrics.SinkWrites.WithLabelValues(s.Name(), "error").Inc()
			return Report{}, &SinkError{Sink: s.Name(), Err: err}
		}
		p.metrics.SinkWrites.WithLabelValues(s.Name(), "success").Inc()
		names = append(names, s.Name())
	}

	return Report{
		Dataset:     job.Dataset,
		Rows:        corrected.Len(),
		Transects:   corrected.Transects,
		Summaries:   domain.Summarize(table, corrected),
		Sinks:       names,
		ProcessedAt: corrected.ProcessedAt,
		Table:       corrected,
	}, nil
}

// load reads the shoreline table and the reference series concurrently.
func load(ctx context.Context, job Job) (domain.ShorelineTable, domain.Series[float64], error) {
	var (
		table domain.ShorelineTable
		ref   domain.Series[float64]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if table, err = job.Shoreline.LoadShoreline(gctx); err != nil {
			return &LoadError{Source: "shoreline", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if ref, err = job.Reference.LoadReference(gctx); err != nil {
			return &LoadError{Source: "tides", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.ShorelineTable{}, domain.Series[float64]{}, err
	}
	return table, ref, nil
}

// progressLogger logs resolver progress in 10% steps.
func progressLogger(log *slog.Logger) domain.ProgressFunc {
	next := 10
	return func(done, total int) {
		pct := done * 100 / total
		if pct < next {
			return
		}
		log.Info("extracting closest points", "percent", pct, "done", done, "total", total)
		next = pct - pct%10 + 10
	}
}

// failureKind labels a run error for metrics.
func failureKind(err error) string {
	var (
		sinkErr     *SinkError
		coverageErr *domain.CoverageError
		ceilingErr  *domain.NoCeilingError
		configErr   *domain.ConfigError
		zoningErr   *domain.ZoningError
	)
	switch {
	case errors.As(err, &sinkErr):
		return "sink"
	case errors.As(err, &coverageErr):
		return "coverage"
	case errors.As(err, &ceilingErr):
		return "no_ceiling"
	case errors.As(err, &configErr), errors.As(err, &zoningErr):
		return "config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "input"
	}
}
