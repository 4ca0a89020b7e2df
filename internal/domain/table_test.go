package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShorelineTable_Validate(t *testing.T) {
	times := []time.Time{t0, t0.Add(time.Hour)}

	tests := []struct {
		name    string
		table   ShorelineTable
		wantErr string
	}{
		{
			name:  "valid",
			table: ShorelineTable{Times: times, Transects: []string{"A"}, Positions: [][]float64{{1, 2}}},
		},
		{
			name:    "column count",
			table:   ShorelineTable{Times: times, Transects: []string{"A", "B"}, Positions: [][]float64{{1, 2}}},
			wantErr: "2 transect ids but 1 columns",
		},
		{
			name:    "short column",
			table:   ShorelineTable{Times: times, Transects: []string{"A"}, Positions: [][]float64{{1}}},
			wantErr: `column "A": 1 values for 2 rows`,
		},
		{
			name:    "empty id",
			table:   ShorelineTable{Times: times, Transects: []string{""}, Positions: [][]float64{{1, 2}}},
			wantErr: "empty transect id",
		},
		{
			name:    "duplicate id",
			table:   ShorelineTable{Times: times, Transects: []string{"A", "A"}, Positions: [][]float64{{1, 2}, {1, 2}}},
			wantErr: "duplicate transect id",
		},
		{
			name:    "duplicate timestamp",
			table:   ShorelineTable{Times: []time.Time{t0, t0}, Transects: []string{"A"}, Positions: [][]float64{{1, 2}}},
			wantErr: "row 1: duplicate timestamp",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.table.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCorrectedTable_Rows(t *testing.T) {
	table := CorrectedTable{
		Times:     []time.Time{t0, t0.Add(time.Hour)},
		Tide:      []float64{0.5, 0.7},
		Transects: []string{"A", "B"},
		Positions: [][]float64{{10, 11}, {math.NaN(), 21}},
	}

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Time: t0, Tide: 0.5, Positions: map[string]float64{"A": 10}}, rows[0])
	assert.Equal(t, Row{Time: t0.Add(time.Hour), Tide: 0.7, Positions: map[string]float64{"A": 11, "B": 21}}, rows[1])
}

func TestSeries_Span(t *testing.T) {
	_, _, ok := Series[float64]{}.Span()
	assert.False(t, ok)

	start, end, ok := hourly(4).Span()
	require.True(t, ok)
	assert.Equal(t, t0, start)
	assert.Equal(t, t0.Add(3*time.Hour), end)
}

func TestBeachSlope(t *testing.T) {
	scalar := ScalarSlope(0.1)
	assert.True(t, scalar.IsSet())
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 0.1, scalar.Scalar())
	assert.Nil(t, scalar.List())

	src := []float64{0.1, 0.2}
	list := PerTransectSlope(src)
	src[0] = 9
	assert.False(t, list.IsScalar())
	assert.Equal(t, []float64{0.1, 0.2}, list.List())

	assert.False(t, BeachSlope{}.IsSet())
}
