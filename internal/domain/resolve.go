package domain

import (
	"sort"
	"time"
)

// Ceiling returns the value of the first sample strictly after t. ok is
// false when no sample is after t.
func (s Series[V]) Ceiling(t time.Time) (value V, ok bool) {
	i := s.ceilingIndex(t)
	if i >= len(s.Times) {
		return value, false
	}
	return s.Values[i], true
}

// ceilingIndex finds the first index whose timestamp is strictly after t, or
// len(s.Times) if there is none. With repeated timestamps the first of the
// run wins.
func (s Series[V]) ceilingIndex(t time.Time) int {
	return sort.Search(len(s.Times), func(i int) bool {
		return s.Times[i].After(t)
	})
}

// Resolve returns, for each target, the reference value paired with the
// first reference timestamp strictly after the target. Results are in
// target order.
//
// The reference must be sorted and must cover the whole target span: the
// earliest target may not precede the first sample and the latest target
// may not follow the last sample. A target at or beyond the last sample has
// no ceiling and fails with NoCeilingError. Nothing is interpolated.
func Resolve[V any](targets []time.Time, ref Series[V], opts ...Option) ([]V, error) {
	o := newOptions(opts)

	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return []V{}, nil
	}
	if err := checkCoverage(targets, ref); err != nil {
		return nil, err
	}

	_, seriesEnd, _ := ref.Span()
	values := make([]V, len(targets))
	for i, t := range targets {
		j := ref.ceilingIndex(t)
		if j >= len(ref.Times) {
			return nil, &NoCeilingError{Target: t, Index: i, SeriesEnd: seriesEnd}
		}
		values[i] = ref.Values[j]
		if o.progress != nil {
			o.progress(i+1, len(targets))
		}
	}
	return values, nil
}

// checkCoverage rejects the batch when the target span is not inside the
// reference span. It looks at the global min and max so targets need not be
// sorted.
func checkCoverage[V any](targets []time.Time, ref Series[V]) error {
	first, last := targets[0], targets[0]
	for _, t := range targets[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}

	start, end, ok := ref.Span()
	if !ok {
		return &CoverageError{TargetStart: first, TargetEnd: last, Empty: true}
	}
	if first.Before(start) || last.After(end) {
		return &CoverageError{
			TargetStart: first,
			TargetEnd:   last,
			SeriesStart: start,
			SeriesEnd:   end,
		}
	}
	return nil
}
