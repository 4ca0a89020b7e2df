// Package postgres stores corrected shoreline positions in Postgres, one row
// per dataset, transect and acquisition.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

const insertBatchSize = 500

// CorrectedPosition is one corrected shoreline position.
type CorrectedPosition struct {
	ID          uint      `gorm:"primaryKey"`
	Dataset     string    `gorm:"not null;uniqueIndex:idx_position_key,priority:1"`
	Transect    string    `gorm:"not null;uniqueIndex:idx_position_key,priority:2"`
	AcquiredAt  time.Time `gorm:"not null;uniqueIndex:idx_position_key,priority:3"`
	Position    float64   `gorm:"not null"`
	Tide        float64   `gorm:"not null"`
	ProcessedAt time.Time `gorm:"not null"`
}

// TableName implements gorm's Tabler.
func (CorrectedPosition) TableName() string {
	return "corrected_positions"
}

// Store writes corrected tables with gorm. It implements pipeline.Sink.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to Postgres and migrates the corrected_positions table.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&CorrectedPosition{}); err != nil {
		return nil, fmt.Errorf("migrate corrected_positions: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an open gorm handle.
func New(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "postgres" }

// Write upserts every finite corrected position of the table. Rerunning a
// dataset replaces earlier values for the same acquisitions.
func (s *Store) Write(ctx context.Context, dataset string, table domain.CorrectedTable) error {
	records := toRecords(dataset, table)
	if len(records) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dataset"}, {Name: "transect"}, {Name: "acquired_at"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "tide", "processed_at"}),
		}).CreateInBatches(records, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("store corrected positions: %w", err)
	}
	s.logger.Debug("stored corrected positions", "dataset", dataset, "rows", len(records))
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toRecords flattens a corrected table. NaN positions have no row.
func toRecords(dataset string, table domain.CorrectedTable) []CorrectedPosition {
	records := make([]CorrectedPosition, 0, len(table.Times)*len(table.Transects))
	for j, id := range table.Transects {
		for i, ts := range table.Times {
			v := table.Positions[j][i]
			if math.IsNaN(v) {
				continue
			}
			records = append(records, CorrectedPosition{
				Dataset:     dataset,
				Transect:    id,
				AcquiredAt:  ts.UTC(),
				Position:    v,
				Tide:        table.Tide[i],
				ProcessedAt: table.ProcessedAt.UTC(),
			})
		}
	}
	return records
}
