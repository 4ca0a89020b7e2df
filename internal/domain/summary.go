package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TransectSummary describes the effect of the correction on one transect.
// Means skip rows where either the raw or corrected position is NaN.
type TransectSummary struct {
	Transect        string  `json:"transect"`
	Samples         int     `json:"samples"`
	MeanCorrection  float64 `json:"mean_correction"`
	MeanCorrected   float64 `json:"mean_corrected"`
	StdDevCorrected float64 `json:"stddev_corrected"`
	MinCorrection   float64 `json:"min_correction"`
	MaxCorrection   float64 `json:"max_correction"`
}

// Summarize compares a corrected table with its raw input, transect by
// transect in output column order. Transects with no finite samples report
// zero statistics with Samples set to 0.
func Summarize(raw ShorelineTable, corrected CorrectedTable) []TransectSummary {
	out := make([]TransectSummary, 0, len(corrected.Transects))
	for j, id := range corrected.Transects {
		rawCol, ok := raw.Column(id)
		if !ok {
			continue
		}
		corrCol := corrected.Positions[j]

		var deltas, values []float64
		for i := range corrCol {
			if i >= len(rawCol) || math.IsNaN(rawCol[i]) || math.IsNaN(corrCol[i]) {
				continue
			}
			deltas = append(deltas, corrCol[i]-rawCol[i])
			values = append(values, corrCol[i])
		}

		s := TransectSummary{Transect: id, Samples: len(values)}
		switch len(values) {
		case 0:
		case 1:
			s.MeanCorrection, s.MeanCorrected = deltas[0], values[0]
			s.MinCorrection, s.MaxCorrection = deltas[0], deltas[0]
		default:
			s.MeanCorrection = stat.Mean(deltas, nil)
			s.MeanCorrected, s.StdDevCorrected = stat.MeanStdDev(values, nil)
			s.MinCorrection, s.MaxCorrection = minMax(deltas)
		}
		out = append(out, s)
	}
	return out
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
