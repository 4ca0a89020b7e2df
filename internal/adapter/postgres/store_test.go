package postgres

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

func TestToRecords(t *testing.T) {
	t0 := time.Date(2021, 3, 4, 0, 30, 0, 0, time.UTC)
	processed := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	table := domain.CorrectedTable{
		Times:       []time.Time{t0, t0.Add(24 * time.Hour)},
		Tide:        []float64{0.8, 0.2},
		Transects:   []string{"NA1", "NA2"},
		Positions:   [][]float64{{101, math.NaN()}, {88, 87}},
		ProcessedAt: processed,
	}

	got := toRecords("NARRA", table)

	want := []CorrectedPosition{
		{Dataset: "NARRA", Transect: "NA1", AcquiredAt: t0, Position: 101, Tide: 0.8, ProcessedAt: processed},
		{Dataset: "NARRA", Transect: "NA2", AcquiredAt: t0, Position: 88, Tide: 0.8, ProcessedAt: processed},
		{Dataset: "NARRA", Transect: "NA2", AcquiredAt: t0.Add(24 * time.Hour), Position: 87, Tide: 0.2, ProcessedAt: processed},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toRecords mismatch (-want +got):\n%s", diff)
	}
}

func TestToRecords_Empty(t *testing.T) {
	assert.Empty(t, toRecords("NARRA", domain.CorrectedTable{}))
}

func TestCorrectedPosition_TableName(t *testing.T) {
	assert.Equal(t, "corrected_positions", CorrectedPosition{}.TableName())
}
