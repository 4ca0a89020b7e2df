package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

const correctedSuffix = "_tide_corr.csv"

// CorrectedPath returns the output path for a shoreline file:
// "NARRA_SL.csv" becomes "NARRA_SL_tide_corr.csv".
func CorrectedPath(shorelinePath string) string {
	return strings.TrimSuffix(shorelinePath, ".csv") + correctedSuffix
}

// Writer writes corrected tables to a CSV file. The file is replaced
// atomically so readers never see a partial table.
type Writer struct {
	Path       string
	TimeColumn string
}

// Name identifies the sink in logs and metrics.
func (w Writer) Name() string { return "csv" }

// Write implements pipeline.Sink.
func (w Writer) Write(ctx context.Context, _ string, table domain.CorrectedTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(w.Path), "."+filepath.Base(w.Path)+".*")
	if err != nil {
		return fmt.Errorf("create corrected csv: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := WriteCorrected(tmp, w.TimeColumn, table); err != nil {
		tmp.Close()
		return fmt.Errorf("write corrected csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close corrected csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.Path); err != nil {
		return fmt.Errorf("rename corrected csv: %w", err)
	}
	return nil
}

// WriteCorrected writes the time column, one column per transect and the
// Tide column. NaN is written as an empty cell. Times of a zone-less table
// are written without a zone so the output keeps the input convention.
func WriteCorrected(w io.Writer, timeColumn string, table domain.CorrectedTable) error {
	if timeColumn == "" {
		timeColumn = "Date"
	}
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(table.Transects)+2)
	header = append(header, timeColumn)
	header = append(header, table.Transects...)
	header = append(header, TideColumn)
	if err := cw.Write(header); err != nil {
		return err
	}

	layout := OutputTimeLayout
	if table.Zoning == domain.ZoningNaive {
		layout = NaiveOutputTimeLayout
	}
	rec := make([]string, len(header))
	for i, ts := range table.Times {
		rec[0] = ts.UTC().Format(layout)
		for j := range table.Transects {
			rec[j+1] = formatFloat(table.Positions[j][i])
		}
		rec[len(rec)-1] = formatFloat(table.Tide[i])
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
