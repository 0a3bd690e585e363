package storage

import (
	"time"

	"tradestats/internal/stats"
)

// SymbolStatsRecord is one exported summary row. Both database sinks use this shape.
type SymbolStatsRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	RunID  string `gorm:"type:varchar(36);not null;index:idx_run_symbol,unique"`
	Symbol string `gorm:"type:text;not null;index:idx_run_symbol,unique;index:idx_stats_symbol"`

	Source     string `gorm:"type:text;not null"`
	Complete   bool   `gorm:"not null"`
	FailedLine int    `gorm:"not null;default:0"`

	MaxTimeGap           int64 `gorm:"not null"`
	TotalVolume          int64 `gorm:"not null"`
	WeightedAveragePrice int64 `gorm:"not null"`
	MaxTradedPrice       int64 `gorm:"not null"`

	StartedAt  time.Time `gorm:"not null;index:idx_stats_started_at"`
	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (SymbolStatsRecord) TableName() string {
	return "symbol_stats_record"
}

// ToRecords converts the summaries of run into rows ready for insertion.
func ToRecords(run Run, summaries []stats.Summary) []SymbolStatsRecord {
	out := make([]SymbolStatsRecord, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, SymbolStatsRecord{
			RunID:                run.ID.String(),
			Symbol:               s.Symbol,
			Source:               run.Source,
			Complete:             run.Complete,
			FailedLine:           run.FailedLine,
			MaxTimeGap:           int64(s.MaxTimeGap), // bounded by trade.MicrosPerDay
			TotalVolume:          s.TotalVolume,
			WeightedAveragePrice: s.WeightedAveragePrice,
			MaxTradedPrice:       s.MaxTradedPrice,
			StartedAt:            run.StartedAt,
		})
	}
	return out
}

// Summary converts a stored row back into a stats.Summary.
func (r SymbolStatsRecord) Summary() stats.Summary {
	return stats.Summary{
		Symbol:               r.Symbol,
		MaxTimeGap:           uint64(r.MaxTimeGap),
		TotalVolume:          r.TotalVolume,
		WeightedAveragePrice: r.WeightedAveragePrice,
		MaxTradedPrice:       r.MaxTradedPrice,
	}
}

// RunRecord is the marker row of an exported run. It is written even when the run
// produced no summaries, so a run that failed on its first record is still visible.
type RunRecord struct {
	RunID      string    `gorm:"type:varchar(36);primaryKey"`
	Source     string    `gorm:"type:text;not null"`
	Complete   bool      `gorm:"not null"`
	FailedLine int       `gorm:"not null;default:0"`
	Symbols    int       `gorm:"not null;default:0"`
	StartedAt  time.Time `gorm:"not null;index:idx_run_started_at"`
	RecordedAt time.Time `gorm:"autoUpdateTime"`
}

func (RunRecord) TableName() string {
	return "stats_run"
}

// ToRunRecord builds the marker row of run.
func ToRunRecord(run Run, symbols int) RunRecord {
	return RunRecord{
		RunID:      run.ID.String(),
		Source:     run.Source,
		Complete:   run.Complete,
		FailedLine: run.FailedLine,
		Symbols:    symbols,
		StartedAt:  run.StartedAt,
	}
}
