// Package domain implements the tide correction of satellite-derived shoreline
// positions.
//
// # Data Sources
//
// Shoreline positions come from a shoreline extraction run over satellite
// imagery: one row per image acquisition, one column per transect, each cell
// the cross-shore chainage (metres) at which the shoreline contour crossed
// the transect. Rows are sparse and irregular in time (cloud cover, revisit
// gaps).
//
// Tide heights come from a tide model or gauge record, typically sampled
// every 10 to 60 minutes over several years. The tide series is dense compared
// to the shoreline rows and must cover their whole time span.
//
// # Resolving tides
//
// Each acquisition time is matched to the first tide sample strictly after it
// (a ceiling lookup). Exact matches are skipped on purpose: a row at 10:00 with
// tide samples at 10:00 and 10:15 resolves to the 10:15 sample. There is no
// interpolation. See [Resolve].
//
// # Correction
//
// The shoreline was digitised at a fixed contour elevation, while the water
// level at acquisition time was the resolved tide. Projecting that vertical
// difference along the beach face gives a horizontal shift:
//
//	correction = weighting * (tide - contour) / beach_slope + offset
//
// which is added to the raw chainage of every row. Beach slope is either one
// value shared by all transects or one value per transect, in the configured
// transect order. See [Correct] and [BeachSlope].
//
// # Time zones
//
// Instants are compared as instants. Callers must supply shoreline and tide
// timestamps in a consistent convention; nothing here infers a zone.
package domain
