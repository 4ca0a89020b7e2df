package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"
	"time"

	"github.com/couchcryptid/shoreline-tide-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/shoreline-tide-etl/internal/adapter/tidecache"
	"github.com/couchcryptid/shoreline-tide-etl/internal/config"
	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
	"github.com/couchcryptid/shoreline-tide-etl/internal/pipeline"
)

// Runner executes a correction job.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) (pipeline.Report, error)
}

// CorrectionRequest is the body of POST /api/v1/corrections. Shoreline data
// is either inline or read from settings.shoreline_csv. Tide data is always
// read from settings.tide_data. Both paths are relative to the data
// directory.
type CorrectionRequest struct {
	Dataset    string            `json:"dataset"`
	Settings   config.Settings   `json:"settings"`
	Shorelines *ShorelinePayload `json:"shorelines,omitempty"`

	// WriteCSV writes the corrected table next to settings.shoreline_csv, or
	// to settings.output when set.
	WriteCSV bool `json:"write_csv,omitempty"`
}

// ShorelinePayload is an inline shoreline table. Null positions are
// missing values.
type ShorelinePayload struct {
	Dates   []string          `json:"dates"`
	Columns []ShorelineColumn `json:"columns"`
}

// ShorelineColumn holds the positions of one transect in row order.
type ShorelineColumn struct {
	Transect  string     `json:"transect"`
	Positions []*float64 `json:"positions"`
}

// CorrectionResponse is returned on success.
type CorrectionResponse struct {
	Report pipeline.Report `json:"report"`
	Rows   []domain.Row    `json:"rows"`
}

// CorrectionHandler serves POST /api/v1/corrections.
type CorrectionHandler struct {
	runner   Runner
	tides    *tidecache.Cache
	dataDir  string
	maxBytes int64
	logger   *slog.Logger
}

// NewCorrectionHandler creates the corrections endpoint. Tide series are
// served from tides between requests.
func NewCorrectionHandler(runner Runner, tides *tidecache.Cache, dataDir string, maxBytes int64, logger *slog.Logger) *CorrectionHandler {
	return &CorrectionHandler{
		runner:   runner,
		tides:    tides,
		dataDir:  dataDir,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// requestError is a client error reported with status 400.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func (h *CorrectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	req := CorrectionRequest{Settings: config.DefaultSettings()}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	job, err := h.buildJob(req)
	if err != nil {
		h.fail(w, err)
		return
	}

	report, err := h.runner.Run(r.Context(), job)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CorrectionResponse{Report: report, Rows: report.Table.Rows()})
}

func (h *CorrectionHandler) buildJob(req CorrectionRequest) (pipeline.Job, error) {
	s := req.Settings
	if err := s.Validate(); err != nil {
		return pipeline.Job{}, badRequest("invalid settings: %v", err)
	}
	if s.TideData == "" {
		return pipeline.Job{}, badRequest("settings.tide_data is required")
	}
	for _, p := range []string{s.TideData, s.ShorelineCSV, s.Output} {
		if p != "" && !filepath.IsLocal(p) {
			return pipeline.Job{}, badRequest("path %q must be relative to the data directory", p)
		}
	}
	s.ResolvePaths(h.dataDir)

	job := pipeline.Job{
		Dataset:  req.Dataset,
		Settings: s.Correction(),
	}

	tideFile := csvfile.TideFile{Path: s.TideData, TimeColumn: s.TideTimeColumn, ValueColumn: s.TideValueColumn}
	key, err := tideFile.CacheKey()
	if err != nil {
		return pipeline.Job{}, err
	}
	job.Reference = h.tides.Wrap(key, tideFile)

	switch {
	case req.Shorelines != nil:
		table, err := req.Shorelines.table()
		if err != nil {
			return pipeline.Job{}, err
		}
		job.Shoreline = pipeline.ShorelineFunc(func(context.Context) (domain.ShorelineTable, error) {
			return table, nil
		})
	case s.ShorelineCSV != "":
		job.Shoreline = csvfile.ShorelineFile{Path: s.ShorelineCSV, TimeColumn: s.TimeColumn}
	default:
		return pipeline.Job{}, badRequest("either shorelines or settings.shoreline_csv is required")
	}

	if req.WriteCSV {
		out := s.Output
		if out == "" {
			if s.ShorelineCSV == "" {
				return pipeline.Job{}, badRequest("write_csv needs settings.output or settings.shoreline_csv")
			}
			out = csvfile.CorrectedPath(s.ShorelineCSV)
		}
		job.Sinks = append(job.Sinks, csvfile.Writer{Path: out, TimeColumn: s.TimeColumn})
	}
	if job.Dataset == "" {
		job.Dataset = datasetName(s)
	}
	return job, nil
}

func (p *ShorelinePayload) table() (domain.ShorelineTable, error) {
	table := domain.ShorelineTable{
		Times:     make([]time.Time, len(p.Dates)),
		Transects: make([]string, len(p.Columns)),
		Positions: make([][]float64, len(p.Columns)),
	}
	var zones csvfile.ZoneTracker
	for i, d := range p.Dates {
		ts, zoning, err := csvfile.ParseTime(d)
		if err == nil {
			err = zones.Observe(i, zoning)
		}
		if err != nil {
			return domain.ShorelineTable{}, badRequest("shorelines.dates[%d]: %v", i, err)
		}
		table.Times[i] = ts
	}
	table.Zoning = zones.Zoning()
	for j, col := range p.Columns {
		table.Transects[j] = col.Transect
		table.Positions[j] = make([]float64, len(col.Positions))
		for i, v := range col.Positions {
			if v == nil {
				table.Positions[j][i] = math.NaN()
				continue
			}
			table.Positions[j][i] = *v
		}
	}
	return table, nil
}

func datasetName(s config.Settings) string {
	src := s.ShorelineCSV
	if src == "" {
		src = s.TideData
	}
	base := filepath.Base(src)
	return base[:len(base)-len(filepath.Ext(base))]
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	var (
		reqErr      *requestError
		sinkErr     *pipeline.SinkError
		loadErr     *pipeline.LoadError
		coverageErr *domain.CoverageError
		ceilingErr  *domain.NoCeilingError
		configErr   *domain.ConfigError
		tableErr    *domain.TableError
		seriesErr   *domain.SeriesError
		missingErr  *domain.MissingTideError
		zoningErr   *domain.ZoningError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &sinkErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &coverageErr), errors.As(err, &ceilingErr),
		errors.As(err, &configErr), errors.As(err, &tableErr),
		errors.As(err, &seriesErr), errors.As(err, &missingErr),
		errors.As(err, &zoningErr), errors.As(err, &loadErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *CorrectionHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("correction request failed", "status", status, "error", err)
	} else {
		h.logger.Debug("correction request rejected", "status", status, "error", err)
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
