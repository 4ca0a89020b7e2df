package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSlopeCount is wrapped by a ConfigError when a per-transect beach
	// slope list does not have one entry per configured transect.
	ErrSlopeCount = errors.New("beach slope count does not match transect count")

	// ErrInvalidSlope is wrapped by a ConfigError when a beach slope is zero,
	// negative, too small to divide by, or not finite.
	ErrInvalidSlope = errors.New("invalid beach slope")

	// ErrUnknownTransect is wrapped by a ConfigError when a configured
	// transect has no column in the shoreline table.
	ErrUnknownTransect = errors.New("unknown transect")

	// ErrDuplicateTransect is wrapped by a ConfigError when a transect is
	// configured more than once.
	ErrDuplicateTransect = errors.New("duplicate transect")

	// ErrInvalidParameter is wrapped by a ConfigError for non-finite
	// weighting, contour or offset values.
	ErrInvalidParameter = errors.New("invalid correction parameter")

	// ErrDuplicateTimestamp is returned when a shoreline table repeats a row
	// timestamp.
	ErrDuplicateTimestamp = errors.New("duplicate timestamp")
)

const timeFmt = time.RFC3339Nano

// CoverageError reports targets that fall outside the reference series span.
// The whole batch is rejected; no partial result is produced.
type CoverageError struct {
	TargetStart, TargetEnd time.Time
	SeriesStart, SeriesEnd time.Time
	// Empty is set when the reference series has no samples at all.
	Empty bool
}

func (e *CoverageError) Error() string {
	if e.Empty {
		return fmt.Sprintf("reference series is empty, cannot cover targets %s to %s",
			e.TargetStart.Format(timeFmt), e.TargetEnd.Format(timeFmt))
	}
	return fmt.Sprintf("reference series %s to %s does not cover targets %s to %s",
		e.SeriesStart.Format(timeFmt), e.SeriesEnd.Format(timeFmt),
		e.TargetStart.Format(timeFmt), e.TargetEnd.Format(timeFmt))
}

// NoCeilingError reports a target with no reference timestamp strictly after
// it. Index is the target's position in the input.
type NoCeilingError struct {
	Target    time.Time
	Index     int
	SeriesEnd time.Time
}

func (e *NoCeilingError) Error() string {
	return fmt.Sprintf("no reference sample after target %d (%s), series ends at %s",
		e.Index, e.Target.Format(timeFmt), e.SeriesEnd.Format(timeFmt))
}

// SeriesError reports a malformed reference series.
type SeriesError struct {
	Index  int
	Reason string
}

func (e *SeriesError) Error() string {
	if e.Index < 0 {
		return "invalid reference series: " + e.Reason
	}
	return fmt.Sprintf("invalid reference series at index %d: %s", e.Index, e.Reason)
}

// ConfigError reports invalid correction settings. Err is one of the
// package sentinels so callers can match with errors.Is.
type ConfigError struct {
	Field    string
	Transect string
	// Expected and Actual are set for count mismatches.
	Expected, Actual int
	Value            float64
	Err              error
}

func (e *ConfigError) Error() string {
	switch {
	case errors.Is(e.Err, ErrSlopeCount):
		return fmt.Sprintf("%s: %v: expected %d, got %d", e.Field, e.Err, e.Expected, e.Actual)
	case e.Transect != "" && (errors.Is(e.Err, ErrUnknownTransect) || errors.Is(e.Err, ErrDuplicateTransect)):
		return fmt.Sprintf("%s: %v %q", e.Field, e.Err, e.Transect)
	case e.Transect != "":
		return fmt.Sprintf("%s: %v %g for transect %q", e.Field, e.Err, e.Value, e.Transect)
	default:
		return fmt.Sprintf("%s: %v %g", e.Field, e.Err, e.Value)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MissingTideError reports a shoreline row whose timestamp has no tide value
// after joining on timestamp.
type MissingTideError struct {
	Time time.Time
	Row  int
}

func (e *MissingTideError) Error() string {
	return fmt.Sprintf("no tide value for row %d (%s)", e.Row, e.Time.Format(timeFmt))
}

// TableError reports a malformed shoreline table.
type TableError struct {
	Row      int
	Transect string
	Reason   string
	Err      error
}

func (e *TableError) Error() string {
	msg := "invalid shoreline table"
	if e.Transect != "" {
		msg += fmt.Sprintf(" column %q", e.Transect)
	}
	if e.Row >= 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg + ": " + e.Reason
}

func (e *TableError) Unwrap() error { return e.Err }
