package csvfile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

// Layouts of the Date column in corrected files, for zoned and zone-less
// input.
const (
	OutputTimeLayout      = "2006-01-02 15:04:05.999999999-07:00"
	NaiveOutputTimeLayout = "2006-01-02 15:04:05.999999999"
)

// Layouts carrying a zone. Fractional seconds are accepted after the
// seconds field even though the layouts do not spell them out.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05Z0700",
}

// Layouts without a zone. These are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an acquisition or tide timestamp and reports whether the
// text carried a zone. Timestamps without a zone are read as UTC. The result
// is always in UTC.
func ParseTime(s string) (time.Time, domain.Zoning, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), domain.ZoningAware, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, domain.ZoningNaive, nil
		}
	}
	return time.Time{}, domain.ZoningUnknown, fmt.Errorf("unrecognized timestamp %q", s)
}

// ErrMixedZoning is returned when one column mixes zoned and zone-less
// timestamps.
var ErrMixedZoning = errors.New("timestamps mix zoned and zone-less values")

// ZoneTracker holds the zone convention of one time column. The first
// timestamp fixes it and every later one must match.
type ZoneTracker struct {
	zoning domain.Zoning
	first  int
}

// Observe records the zoning of the timestamp at row.
func (z *ZoneTracker) Observe(row int, zoning domain.Zoning) error {
	if z.zoning == domain.ZoningUnknown {
		z.zoning, z.first = zoning, row
		return nil
	}
	if zoning != z.zoning {
		return fmt.Errorf("%w: row %d is %s but row %d is %s", ErrMixedZoning, row, zoning, z.first, z.zoning)
	}
	return nil
}

// Zoning returns the column convention, unknown before the first row.
func (z *ZoneTracker) Zoning() domain.Zoning { return z.zoning }
