package csvfile

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

var t0 = time.Date(2021, time.March, 4, 0, 0, 0, 0, time.UTC)

func TestParseTime_Layouts(t *testing.T) {
	aware, naive := domain.ZoningAware, domain.ZoningNaive
	tests := []struct {
		in     string
		want   time.Time
		zoning domain.Zoning
	}{
		{"2021-03-04T00:00:00Z", t0, aware},
		{"2021-03-04T10:00:00+10:00", t0, aware},
		{"2021-03-04 00:00:00+00:00", t0, aware},
		{"2021-03-04 00:00:00.5+00:00", t0.Add(500 * time.Millisecond), aware},
		{"2021-03-04 10:30:00+1000", t0.Add(30 * time.Minute), aware},
		{"2021-03-04 00:00:00", t0, naive},
		{"2021-03-04T00:15:00", t0.Add(15 * time.Minute), naive},
		{"2021-03-04 00:15", t0.Add(15 * time.Minute), naive},
		{"2021-03-04", t0, naive},
		{"  2021-03-04  ", t0, naive},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, zoning, err := ParseTime(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
			assert.Equal(t, tc.zoning, zoning)
		})
	}
}

func TestParseTime_Invalid(t *testing.T) {
	_, _, err := ParseTime("04/03/2021")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized timestamp")
}

func TestReadShoreline(t *testing.T) {
	in := `,Date,NA1,NA2
0,2021-03-04 00:30:00+00:00,101.5,88
1,2021-03-05 00:30:00+00:00,,87.25
2,2021-03-06 00:30:00+00:00,nan,86
`
	table, err := ReadShoreline(context.Background(), strings.NewReader(in), "Date")
	require.NoError(t, err)

	assert.Equal(t, []string{"NA1", "NA2"}, table.Transects)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, t0.Add(30*time.Minute), table.Times[0])
	assert.Equal(t, domain.ZoningAware, table.Zoning)

	na1, ok := table.Column("NA1")
	require.True(t, ok)
	assert.InDelta(t, 101.5, na1[0], 0)
	assert.True(t, math.IsNaN(na1[1]))
	assert.True(t, math.IsNaN(na1[2]))

	na2, _ := table.Column("NA2")
	assert.Equal(t, []float64{88, 87.25, 86}, na2)
}

func TestReadShoreline_SkipsTideColumn(t *testing.T) {
	in := "Date,NA1,Tide\n2021-03-04,1,0.5\n"
	table, err := ReadShoreline(context.Background(), strings.NewReader(in), "Date")
	require.NoError(t, err)
	assert.Equal(t, []string{"NA1"}, table.Transects)
}

func TestReadShoreline_HeaderOnly(t *testing.T) {
	table, err := ReadShoreline(context.Background(), strings.NewReader("Date,NA1\n"), "Date")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, [][]float64{{}}, table.Positions)
}

func TestReadShoreline_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty input", "", "read header"},
		{"missing time column", "When,NA1\n2021-03-04,1\n", `missing time column "Date"`},
		{"bad time", "Date,NA1\nyesterday,1\n", "unrecognized timestamp"},
		{"bad position", "Date,NA1\n2021-03-04,far\n", `invalid position "far"`},
		{"ragged row", "Date,NA1\n2021-03-04,1,2\n", "wrong number of fields"},
		{"duplicate timestamp", "Date,NA1\n2021-03-04,1\n2021-03-04 00:00:00,2\n", "duplicate timestamp"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadShoreline(context.Background(), strings.NewReader(tc.in), "Date")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestReadShoreline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadShoreline(ctx, strings.NewReader("Date,NA1\n2021-03-04,1\n"), "Date")
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadTides(t *testing.T) {
	in := "dates,tide\n2021-03-04 00:00:00,0.25\n2021-03-04 00:15:00,-0.5\n"
	s, err := ReadTides(context.Background(), strings.NewReader(in), "dates", "tide")
	require.NoError(t, err)

	assert.Equal(t, []time.Time{t0, t0.Add(15 * time.Minute)}, s.Times)
	assert.Equal(t, []float64{0.25, -0.5}, s.Values)
	assert.Equal(t, domain.ZoningNaive, s.Zoning)
}

func TestReadShoreline_RejectsMixedZoning(t *testing.T) {
	in := "Date,NA1\n2021-01-01 10:00:00+10:00,1\n2021-01-01 12:00:00,2\n"
	_, err := ReadShoreline(context.Background(), strings.NewReader(in), "Date")
	require.ErrorIs(t, err, ErrMixedZoning)

	var tableErr *domain.TableError
	require.ErrorAs(t, err, &tableErr)
	assert.Equal(t, 1, tableErr.Row)
	assert.Contains(t, err.Error(), "row 1 is zone-less but row 0 is zoned")
}

func TestReadTides_RejectsMixedZoning(t *testing.T) {
	in := "dates,tide\n2021-01-01 00:00:00,1\n2021-01-01T01:00:00Z,2\n"
	_, err := ReadTides(context.Background(), strings.NewReader(in), "dates", "tide")
	require.ErrorIs(t, err, ErrMixedZoning)
	assert.Contains(t, err.Error(), "row 1")
}

func TestReadTides_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"missing time column", "when,tide\n", `missing time column "dates"`},
		{"missing value column", "dates,level\n", `missing tide column "tide"`},
		{"empty level", "dates,tide\n2021-03-04,\n", "invalid tide level"},
		{"nan level", "dates,tide\n2021-03-04,NaN\n", "invalid tide level"},
		{"bad time", "dates,tide\nsoon,1\n", "row 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadTides(context.Background(), strings.NewReader(tc.in), "dates", "tide")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestTideFile_LoadAndCacheKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tides.csv")
	require.NoError(t, os.WriteFile(path, []byte("dates,tide\n2021-03-04,1\n"), 0o600))

	f := TideFile{Path: path, TimeColumn: "dates", ValueColumn: "tide"}
	s, err := f.LoadReference(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	k1, err := f.CacheKey()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("dates,tide\n2021-03-04,1\n2021-03-05,2\n"), 0o600))
	k2, err := f.CacheKey()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "key changes with file contents")
}

func TestTideFile_Missing(t *testing.T) {
	f := TideFile{Path: filepath.Join(t.TempDir(), "nope.csv"), TimeColumn: "dates", ValueColumn: "tide"}
	_, err := f.LoadReference(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = f.CacheKey()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCorrectedPath(t *testing.T) {
	assert.Equal(t, "data/NARRA_SL_tide_corr.csv", CorrectedPath("data/NARRA_SL.csv"))
	assert.Equal(t, "shorelines_tide_corr.csv", CorrectedPath("shorelines"))
}

func corrected() domain.CorrectedTable {
	return domain.CorrectedTable{
		Times:     []time.Time{t0, t0.Add(24 * time.Hour)},
		Tide:      []float64{0.5, -0.25},
		Transects: []string{"NA1", "NA2"},
		Positions: [][]float64{{101, math.NaN()}, {88.5, 87}},
	}
}

func TestWriteCorrected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCorrected(&buf, "Date", corrected()))

	want := "Date,NA1,NA2,Tide\n" +
		"2021-03-04 00:00:00+00:00,101,88.5,0.5\n" +
		"2021-03-05 00:00:00+00:00,,87,-0.25\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCorrected_KeepsZoneLessInput(t *testing.T) {
	table := corrected()
	table.Zoning = domain.ZoningNaive

	var buf bytes.Buffer
	require.NoError(t, WriteCorrected(&buf, "Date", table))
	assert.Contains(t, buf.String(), "\n2021-03-04 00:00:00,101,88.5,0.5\n")

	back, err := ReadShoreline(context.Background(), &buf, "Date")
	require.NoError(t, err)
	assert.Equal(t, domain.ZoningNaive, back.Zoning)
	assert.Equal(t, table.Times, back.Times)
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := CorrectedPath(filepath.Join(dir, "NARRA.csv"))
	w := Writer{Path: out, TimeColumn: "Date"}
	assert.Equal(t, "csv", w.Name())
	require.NoError(t, w.Write(context.Background(), "NARRA", corrected()))

	table, err := ShorelineFile{Path: out, TimeColumn: "Date"}.LoadShoreline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"NA1", "NA2"}, table.Transects)
	assert.Equal(t, corrected().Times, table.Times)
	na2, _ := table.Column("NA2")
	assert.Equal(t, []float64{88.5, 87}, na2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
