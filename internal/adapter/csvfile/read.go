package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

// TideColumn is the column the writer adds to corrected files. The shoreline
// reader skips it so a corrected file can be read back as input.
const TideColumn = "Tide"

// ShorelineFile loads a wide shoreline CSV: one time column and one column
// per transect.
type ShorelineFile struct {
	Path       string
	TimeColumn string
}

// LoadShoreline reads and parses the file.
func (f ShorelineFile) LoadShoreline(ctx context.Context) (domain.ShorelineTable, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return domain.ShorelineTable{}, fmt.Errorf("open shoreline csv: %w", err)
	}
	defer file.Close()

	table, err := ReadShoreline(ctx, file, f.TimeColumn)
	if err != nil {
		return domain.ShorelineTable{}, fmt.Errorf("shoreline csv %s: %w", f.Path, err)
	}
	return table, nil
}

// ReadShoreline parses a shoreline table. Columns with an empty header, such
// as a leading row index, are skipped along with TideColumn. Empty cells and
// "nan" read as NaN. Timestamps must be all zoned or all zone-less.
func ReadShoreline(ctx context.Context, r io.Reader, timeColumn string) (domain.ShorelineTable, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return domain.ShorelineTable{}, fmt.Errorf("read header: %w", err)
	}

	timeIdx := -1
	var table domain.ShorelineTable
	var cols []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == timeColumn:
			timeIdx = i
		case name == "" || name == TideColumn:
		default:
			cols = append(cols, i)
			table.Transects = append(table.Transects, name)
		}
	}
	if timeIdx < 0 {
		return domain.ShorelineTable{}, fmt.Errorf("missing time column %q", timeColumn)
	}
	table.Positions = make([][]float64, len(cols))

	var zones ZoneTracker
	for row := 0; ; row++ {
		if row%1024 == 0 && ctx.Err() != nil {
			return domain.ShorelineTable{}, ctx.Err()
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.ShorelineTable{}, err
		}

		ts, zoning, err := ParseTime(rec[timeIdx])
		if err == nil {
			err = zones.Observe(row, zoning)
		}
		if err != nil {
			return domain.ShorelineTable{}, &domain.TableError{Row: row, Transect: timeColumn, Err: err}
		}
		table.Times = append(table.Times, ts)
		for j, c := range cols {
			v, err := parsePosition(rec[c])
			if err != nil {
				return domain.ShorelineTable{}, &domain.TableError{Row: row, Transect: table.Transects[j], Err: err}
			}
			table.Positions[j] = append(table.Positions[j], v)
		}
	}

	table.Zoning = zones.Zoning()
	for j := range table.Positions {
		if table.Positions[j] == nil {
			table.Positions[j] = []float64{}
		}
	}
	if err := table.Validate(); err != nil {
		return domain.ShorelineTable{}, err
	}
	return table, nil
}

// TideFile loads a reference tide series from a two column CSV.
type TideFile struct {
	Path        string
	TimeColumn  string
	ValueColumn string
}

// LoadReference reads and parses the file.
func (f TideFile) LoadReference(ctx context.Context) (domain.Series[float64], error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return domain.Series[float64]{}, fmt.Errorf("open tide csv: %w", err)
	}
	defer file.Close()

	series, err := ReadTides(ctx, file, f.TimeColumn, f.ValueColumn)
	if err != nil {
		return domain.Series[float64]{}, fmt.Errorf("tide csv %s: %w", f.Path, err)
	}
	return series, nil
}

// CacheKey identifies the file contents for caching. It changes when the
// file is modified.
func (f TideFile) CacheKey() (string, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return "", fmt.Errorf("stat tide csv: %w", err)
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d", f.Path, f.TimeColumn, f.ValueColumn,
		info.ModTime().UnixNano(), info.Size()), nil
}

// ReadTides parses a tide series. Ordering is not checked here; the
// resolver rejects unsorted series.
func ReadTides(ctx context.Context, r io.Reader, timeColumn, valueColumn string) (domain.Series[float64], error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return domain.Series[float64]{}, fmt.Errorf("read header: %w", err)
	}
	timeIdx, valueIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case timeColumn:
			timeIdx = i
		case valueColumn:
			valueIdx = i
		}
	}
	if timeIdx < 0 {
		return domain.Series[float64]{}, fmt.Errorf("missing time column %q", timeColumn)
	}
	if valueIdx < 0 {
		return domain.Series[float64]{}, fmt.Errorf("missing tide column %q", valueColumn)
	}

	var (
		s     domain.Series[float64]
		zones ZoneTracker
	)
	for row := 0; ; row++ {
		if row%4096 == 0 && ctx.Err() != nil {
			return domain.Series[float64]{}, ctx.Err()
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Series[float64]{}, err
		}
		ts, zoning, err := ParseTime(rec[timeIdx])
		if err == nil {
			err = zones.Observe(row, zoning)
		}
		if err != nil {
			return domain.Series[float64]{}, fmt.Errorf("row %d: %w", row, err)
		}
		raw := strings.TrimSpace(rec[valueIdx])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Series[float64]{}, fmt.Errorf("row %d: invalid tide level %q", row, raw)
		}
		s.Times = append(s.Times, ts)
		s.Values = append(s.Values, v)
	}
	s.Zoning = zones.Zoning()
	return s, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	return cr
}

func parsePosition(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return v, nil
}
