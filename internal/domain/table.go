package domain

import (
	"fmt"
	"math"
	"time"
)

// ShorelineTable is a wide table of raw shoreline positions keyed by
// acquisition time. Positions is column-major: Positions[j][i] is the
// position of transect Transects[j] at Times[i]. NaN marks a missing value.
type ShorelineTable struct {
	Times     []time.Time
	Transects []string
	Positions [][]float64

	// Zoning is how Times were written in the source.
	Zoning Zoning
}

// Len returns the number of rows.
func (t ShorelineTable) Len() int { return len(t.Times) }

// Column returns the positions of a transect, or false if the table has no
// such column. The returned slice is shared with the table.
func (t ShorelineTable) Column(transect string) ([]float64, bool) {
	j := t.columnIndex(transect)
	if j < 0 {
		return nil, false
	}
	return t.Positions[j], true
}

func (t ShorelineTable) columnIndex(transect string) int {
	for j, id := range t.Transects {
		if id == transect {
			return j
		}
	}
	return -1
}

// Validate checks the table shape: one column per transect id, every column
// with one value per row, unique non-empty transect ids and unique row
// timestamps.
func (t ShorelineTable) Validate() error {
	if len(t.Positions) != len(t.Transects) {
		return &TableError{Row: -1, Reason: fmt.Sprintf("%d transect ids but %d columns", len(t.Transects), len(t.Positions))}
	}
	seenIDs := make(map[string]struct{}, len(t.Transects))
	for j, id := range t.Transects {
		if id == "" {
			return &TableError{Row: -1, Reason: fmt.Sprintf("empty transect id at column %d", j)}
		}
		if _, ok := seenIDs[id]; ok {
			return &TableError{Row: -1, Transect: id, Reason: "duplicate transect id"}
		}
		seenIDs[id] = struct{}{}
		if len(t.Positions[j]) != len(t.Times) {
			return &TableError{Row: -1, Transect: id, Reason: fmt.Sprintf("%d values for %d rows", len(t.Positions[j]), len(t.Times))}
		}
	}
	seenTimes := make(map[instant]struct{}, len(t.Times))
	for i, ts := range t.Times {
		key := instantOf(ts)
		if _, ok := seenTimes[key]; ok {
			return &TableError{Row: i, Err: ErrDuplicateTimestamp}
		}
		seenTimes[key] = struct{}{}
	}
	return nil
}

// CorrectedTable is a ShorelineTable after tide correction, with the tide
// value used for each row. Column order matches the input table.
type CorrectedTable struct {
	Times     []time.Time
	Tide      []float64
	Transects []string
	Positions [][]float64

	// Zoning is carried over from the input table so writers can keep the
	// source convention.
	Zoning Zoning

	ProcessedAt time.Time
}

// Len returns the number of rows.
func (t CorrectedTable) Len() int { return len(t.Times) }

// Column returns the corrected positions of a transect.
func (t CorrectedTable) Column(transect string) ([]float64, bool) {
	for j, id := range t.Transects {
		if id == transect {
			return t.Positions[j], true
		}
	}
	return nil, false
}

// Row is one corrected row in row-major form, used by sinks that emit a
// record per acquisition.
type Row struct {
	Time      time.Time          `json:"date"`
	Tide      float64            `json:"tide"`
	Positions map[string]float64 `json:"positions"`
}

// Rows converts the table to row-major form. NaN positions are omitted from
// the map since they cannot be encoded as JSON numbers.
func (t CorrectedTable) Rows() []Row {
	rows := make([]Row, len(t.Times))
	for i, ts := range t.Times {
		pos := make(map[string]float64, len(t.Transects))
		for j, id := range t.Transects {
			if v := t.Positions[j][i]; !math.IsNaN(v) {
				pos[id] = v
			}
		}
		rows[i] = Row{Time: ts, Tide: t.Tide[i], Positions: pos}
	}
	return rows
}

// Series is an ordered reference time series with one value per timestamp.
// Times must be non-decreasing.
type Series[V any] struct {
	Times  []time.Time
	Values []V

	// Zoning is how Times were written in the source.
	Zoning Zoning
}

// Len returns the number of samples.
func (s Series[V]) Len() int { return len(s.Times) }

// Span returns the first and last timestamps. ok is false for an empty
// series.
func (s Series[V]) Span() (start, end time.Time, ok bool) {
	if len(s.Times) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Times[0], s.Times[len(s.Times)-1], true
}

// Validate checks that Times and Values line up and Times is sorted.
func (s Series[V]) Validate() error {
	if len(s.Times) != len(s.Values) {
		return &SeriesError{Index: -1, Reason: fmt.Sprintf("%d timestamps but %d values", len(s.Times), len(s.Values))}
	}
	for i := 1; i < len(s.Times); i++ {
		if s.Times[i].Before(s.Times[i-1]) {
			return &SeriesError{Index: i, Reason: "timestamps not in ascending order"}
		}
	}
	return nil
}

// instant is a map key for a point in time. UnixNano overflows outside the
// years 1678 to 2262; seconds plus nanoseconds do not.
type instant struct {
	sec  int64
	nsec int
}

func instantOf(t time.Time) instant {
	return instant{sec: t.Unix(), nsec: t.Nanosecond()}
}
