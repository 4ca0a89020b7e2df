package domain

import (
	"math"
)

// MinBeachSlope is the smallest beach slope accepted as a divisor.
const MinBeachSlope = 1e-6

type slopeKind uint8

const (
	slopeUnset slopeKind = iota
	slopeScalar
	slopePerTransect
)

// BeachSlope is either a single slope shared by every transect or one slope
// per transect, in configured transect order. The zero value is unset and
// fails validation.
type BeachSlope struct {
	kind   slopeKind
	scalar float64
	list   []float64
}

// ScalarSlope returns a slope shared by all transects.
func ScalarSlope(v float64) BeachSlope {
	return BeachSlope{kind: slopeScalar, scalar: v}
}

// PerTransectSlope returns one slope per transect. The slice is copied.
func PerTransectSlope(vs []float64) BeachSlope {
	return BeachSlope{kind: slopePerTransect, list: append([]float64(nil), vs...)}
}

// IsScalar reports whether the slope is shared by all transects.
func (b BeachSlope) IsScalar() bool { return b.kind == slopeScalar }

// IsSet reports whether the slope was configured.
func (b BeachSlope) IsSet() bool { return b.kind != slopeUnset }

// Scalar returns the shared slope. It is only meaningful when IsScalar.
func (b BeachSlope) Scalar() float64 { return b.scalar }

// List returns a copy of the per-transect slopes, or nil for a scalar slope.
func (b BeachSlope) List() []float64 {
	if b.kind != slopePerTransect {
		return nil
	}
	return append([]float64(nil), b.list...)
}

// CorrectionSettings holds the parameters of the tide correction.
//
// Transects lists the transects to correct and fixes the order in which a
// per-transect BeachSlope is read. When empty, every column of the shoreline
// table is corrected in table order.
type CorrectionSettings struct {
	Weighting  float64
	Contour    float64
	Offset     float64
	BeachSlope BeachSlope
	Transects  []string
}

// transectPlan is the validated per-transect work for one correction run.
type transectPlan struct {
	transect string
	column   int
	slope    float64
}

// plan validates the settings against a table and resolves the beach slope
// once into a slope per corrected transect.
func (s CorrectionSettings) plan(table ShorelineTable) ([]transectPlan, error) {
	for _, p := range []struct {
		field string
		value float64
	}{
		{"weighting", s.Weighting},
		{"contour", s.Contour},
		{"offset", s.Offset},
	} {
		if !isFinite(p.value) {
			return nil, &ConfigError{Field: p.field, Value: p.value, Err: ErrInvalidParameter}
		}
	}

	transects := s.Transects
	if len(transects) == 0 {
		transects = table.Transects
	}

	switch s.BeachSlope.kind {
	case slopeScalar:
	case slopePerTransect:
		if len(s.BeachSlope.list) != len(transects) {
			return nil, &ConfigError{
				Field:    "beach_slope",
				Expected: len(transects),
				Actual:   len(s.BeachSlope.list),
				Err:      ErrSlopeCount,
			}
		}
	default:
		return nil, &ConfigError{Field: "beach_slope", Value: math.NaN(), Err: ErrInvalidSlope}
	}

	plans := make([]transectPlan, len(transects))
	seen := make(map[string]struct{}, len(transects))
	for i, id := range transects {
		if _, dup := seen[id]; dup {
			return nil, &ConfigError{Field: "transects", Transect: id, Err: ErrDuplicateTransect}
		}
		seen[id] = struct{}{}
		col := table.columnIndex(id)
		if col < 0 {
			return nil, &ConfigError{Field: "transects", Transect: id, Err: ErrUnknownTransect}
		}
		slope := s.BeachSlope.scalar
		if s.BeachSlope.kind == slopePerTransect {
			slope = s.BeachSlope.list[i]
		}
		if !validSlope(slope) {
			return nil, &ConfigError{Field: "beach_slope", Transect: id, Value: slope, Err: ErrInvalidSlope}
		}
		plans[i] = transectPlan{transect: id, column: col, slope: slope}
	}
	return plans, nil
}

// Validate checks the settings against a shoreline table without running
// the correction.
func (s CorrectionSettings) Validate(table ShorelineTable) error {
	_, err := s.plan(table)
	return err
}

func validSlope(v float64) bool {
	return isFinite(v) && v >= MinBeachSlope
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
