package domain

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Correct applies the tide correction to every configured transect of obs.
// Tide values are joined to rows on timestamp; a row without a tide value
// fails the whole call with MissingTideError. Tide samples with no matching
// row are ignored.
//
// The settings are validated before any arithmetic. The input table is not
// modified; the result holds fresh slices with the input row and column
// order. Transects not configured are copied through unchanged.
func Correct(obs ShorelineTable, tide Series[float64], settings CorrectionSettings, opts ...Option) (CorrectedTable, error) {
	o := newOptions(opts)

	plans, err := validateInputs(obs, settings)
	if err != nil {
		return CorrectedTable{}, err
	}
	if len(tide.Times) != len(tide.Values) {
		return CorrectedTable{}, &SeriesError{Index: -1, Reason: "tide timestamps and values differ in length"}
	}
	if err := CheckZoning(obs.Zoning, tide.Zoning); err != nil {
		return CorrectedTable{}, err
	}
	tides, err := joinOnTime(obs.Times, tide)
	if err != nil {
		return CorrectedTable{}, err
	}
	return applyCorrection(obs, tides, settings, plans, o.workers)
}

// ResolveAndCorrect resolves a tide value for every row of obs from the
// reference series, then corrects the table. Settings are validated before
// the tide lookup.
func ResolveAndCorrect(obs ShorelineTable, ref Series[float64], settings CorrectionSettings, opts ...Option) (CorrectedTable, error) {
	o := newOptions(opts)

	plans, err := validateInputs(obs, settings)
	if err != nil {
		return CorrectedTable{}, err
	}
	if err := CheckZoning(obs.Zoning, ref.Zoning); err != nil {
		return CorrectedTable{}, err
	}
	tides, err := Resolve(obs.Times, ref, opts...)
	if err != nil {
		return CorrectedTable{}, err
	}
	return applyCorrection(obs, tides, settings, plans, o.workers)
}

func validateInputs(obs ShorelineTable, settings CorrectionSettings) ([]transectPlan, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	return settings.plan(obs)
}

// joinOnTime returns the tide value for each row time. Equal instants match
// regardless of location. With repeated tide timestamps the first sample
// wins.
func joinOnTime(rows []time.Time, tide Series[float64]) ([]float64, error) {
	if aligned(rows, tide.Times) {
		return append([]float64(nil), tide.Values...), nil
	}

	byTime := make(map[instant]float64, len(tide.Times))
	for i, ts := range tide.Times {
		key := instantOf(ts)
		if _, ok := byTime[key]; !ok {
			byTime[key] = tide.Values[i]
		}
	}

	out := make([]float64, len(rows))
	for i, ts := range rows {
		v, ok := byTime[instantOf(ts)]
		if !ok {
			return nil, &MissingTideError{Time: ts, Row: i}
		}
		out[i] = v
	}
	return out, nil
}

func aligned(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// applyCorrection builds the corrected table. The vertical offset
// (tide - contour) is shared by all transects; each transect then scales it
// by weighting/slope, adds the offset and adds the result to a copy of its
// raw column. Transects own disjoint columns so they run concurrently.
func applyCorrection(obs ShorelineTable, tides []float64, settings CorrectionSettings, plans []transectPlan, workers int) (CorrectedTable, error) {
	out := CorrectedTable{
		Times:       append([]time.Time(nil), obs.Times...),
		Tide:        tides,
		Transects:   append([]string(nil), obs.Transects...),
		Positions:   make([][]float64, len(obs.Positions)),
		Zoning:      obs.Zoning,
		ProcessedAt: clock.Now(),
	}
	for j, col := range obs.Positions {
		out.Positions[j] = append([]float64(nil), col...)
	}

	dz := append([]float64(nil), tides...)
	floats.AddConst(-settings.Contour, dz)

	var g errgroup.Group
	g.SetLimit(workers)
	for _, p := range plans {
		g.Go(func() error {
			if n := len(out.Positions[p.column]); n != len(dz) {
				return &TableError{Row: -1, Transect: p.transect,
					Reason: fmt.Sprintf("%d values for %d tide levels", n, len(dz))}
			}
			correction := make([]float64, len(dz))
			floats.ScaleTo(correction, settings.Weighting/p.slope, dz)
			floats.AddConst(settings.Offset, correction)
			floats.Add(out.Positions[p.column], correction)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CorrectedTable{}, err
	}
	return out, nil
}
