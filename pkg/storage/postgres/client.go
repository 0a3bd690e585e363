package postgres

import (
	"context"
	"fmt"

	"tradestats/config"
	"tradestats/internal/stats"
	"tradestats/pkg/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type PostgresClient struct {
	DB *gorm.DB
}

var _ storage.Store = (*PostgresClient)(nil)

func NewClient(dsn string) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresClient{DB: db}, nil
}

// InitializeAndMigrate connects to Postgres, optionally creates the DB, applies the
// pool settings and runs AutoMigrate.
func InitializeAndMigrate(ctx context.Context, cfg config.PostgresConfig, env string, createDB bool) (*PostgresClient, error) {
	if createDB {
		if err := CreateDatabase(ctx, cfg, env); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	dsn, err := cfg.DSN(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dsn: %w", err)
	}

	client, err := NewClient(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if sqlDB, err := client.DB.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := client.AutoMigrateSymbolStats(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) AutoMigrateSymbolStats() error {
	if err := p.DB.AutoMigrate(&storage.RunRecord{}, &storage.SymbolStatsRecord{}); err != nil {
		return fmt.Errorf("auto-migrate symbol stats table: %w", err)
	}
	return nil
}

// SaveSummaries upserts the run marker and one row per summary in a single
// transaction. A re-export of the same run replaces the earlier values.
func (p *PostgresClient) SaveSummaries(ctx context.Context, run storage.Run, summaries []stats.Summary) error {
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := storage.ToRunRecord(run, len(summaries))
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "run_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"source",
				"complete",
				"failed_line",
				"symbols",
				"recorded_at",
			}),
		}).Create(&marker).Error; err != nil {
			return fmt.Errorf("upsert run marker: %w", err)
		}

		if len(summaries) == 0 {
			return nil
		}

		records := storage.ToRecords(run, summaries)
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "run_id"},
				{Name: "symbol"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"source",
				"complete",
				"failed_line",
				"max_time_gap",
				"total_volume",
				"weighted_average_price",
				"max_traded_price",
			}),
		}).Create(&records).Error; err != nil {
			return fmt.Errorf("upsert symbol stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns the marker row of a run, or gorm.ErrRecordNotFound.
func (p *PostgresClient) GetRun(ctx context.Context, runID string) (storage.RunRecord, error) {
	var record storage.RunRecord
	err := p.DB.WithContext(ctx).Where("run_id = ?", runID).First(&record).Error
	return record, err
}

// GetRunStats returns the rows of a run ordered by symbol.
func (p *PostgresClient) GetRunStats(ctx context.Context, runID string) ([]storage.SymbolStatsRecord, error) {
	var records []storage.SymbolStatsRecord
	err := p.DB.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("symbol").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (p *PostgresClient) DeleteRun(ctx context.Context, runID string) error {
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&storage.SymbolStatsRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("run_id = ?", runID).Delete(&storage.RunRecord{}).Error
	})
}

func (p *PostgresClient) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *PostgresClient) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
