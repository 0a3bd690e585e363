package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"tradestats/internal/stats"
	"tradestats/pkg/storage"
	"tradestats/pkg/storage/postgres"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// liveDSN returns the DSN of a test server or skips the test.
func liveDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TRADESTATS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRADESTATS_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=invalid.invalid port=5432 user=fail password=fail dbname=fail sslmode=disable connect_timeout=2"

	_, err := postgres.NewClient(invalidDSN)
	require.Error(t, err, "expected error for invalid DSN")
}

// go test -v --run TestSymbolStatsCRUD
func TestSymbolStatsCRUD(t *testing.T) {
	client, err := postgres.NewClient(liveDSN(t))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.True(t, client.IsHealthy(ctx), "expected healthy DB connection")
	require.NoError(t, client.AutoMigrateSymbolStats())

	run := storage.NewRun("trades.csv")
	run.Complete = true
	defer client.DeleteRun(ctx, run.ID.String())

	summaries := []stats.Summary{
		{Symbol: "BBB", MaxTimeGap: 0, TotalVolume: 2, WeightedAveragePrice: 7, MaxTradedPrice: 7},
		{Symbol: "AAA", MaxTimeGap: 100, TotalVolume: 15, WeightedAveragePrice: 53, MaxTradedPrice: 60},
	}
	require.NoError(t, client.SaveSummaries(ctx, run, summaries))

	got, err := client.GetRunStats(ctx, run.ID.String())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, summaries[1], got[0].Summary())
	require.Equal(t, summaries[0], got[1].Summary())

	// Re-export replaces the earlier values
	summaries[1].TotalVolume = 16
	require.NoError(t, client.SaveSummaries(ctx, run, summaries[1:]))
	got, err = client.GetRunStats(ctx, run.ID.String())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(16), got[0].TotalVolume)

	marker, err := client.GetRun(ctx, run.ID.String())
	require.NoError(t, err)
	require.True(t, marker.Complete)
	require.Equal(t, 1, marker.Symbols)

	require.NoError(t, client.DeleteRun(ctx, run.ID.String()))
	got, err = client.GetRunStats(ctx, run.ID.String())
	require.NoError(t, err)
	require.Empty(t, got)
	_, err = client.GetRun(ctx, run.ID.String())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// go test -v --run TestSaveEmptyRun
func TestSaveEmptyRun(t *testing.T) {
	client, err := postgres.NewClient(liveDSN(t))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, client.AutoMigrateSymbolStats())

	run := storage.NewRun("trades.csv")
	run.FailedLine = 1
	defer client.DeleteRun(ctx, run.ID.String())

	require.NoError(t, client.SaveSummaries(ctx, run, nil))

	marker, err := client.GetRun(ctx, run.ID.String())
	require.NoError(t, err)
	require.False(t, marker.Complete)
	require.Equal(t, 1, marker.FailedLine)
	require.Zero(t, marker.Symbols)
}
