package domain

import "fmt"

// Zoning records whether the timestamps of a table or series were written
// with a UTC offset. Readers that cannot tell leave it unknown.
type Zoning uint8

const (
	ZoningUnknown Zoning = iota
	ZoningAware
	ZoningNaive
)

func (z Zoning) String() string {
	switch z {
	case ZoningAware:
		return "zoned"
	case ZoningNaive:
		return "zone-less"
	default:
		return "unknown"
	}
}

// CheckZoning rejects a shoreline table and a tide series whose timestamps
// follow different conventions. Zone-less timestamps are read as UTC, so
// pairing them with zoned ones would shift every lookup by the zone offset.
// An unknown side matches anything.
func CheckZoning(shoreline, tides Zoning) error {
	if shoreline == ZoningUnknown || tides == ZoningUnknown || shoreline == tides {
		return nil
	}
	return &ZoningError{Shoreline: shoreline, Tides: tides}
}

// ZoningError reports shoreline and tide timestamps with different zone
// conventions.
type ZoningError struct {
	Shoreline Zoning
	Tides     Zoning
}

func (e *ZoningError) Error() string {
	return fmt.Sprintf("shoreline timestamps are %s but tide timestamps are %s; use the same convention for both",
		e.Shoreline, e.Tides)
}
