package storage

import (
	"context"
	"testing"

	"tradestats/internal/stats"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestSaveAndRetrieveSummaries
func TestSaveAndRetrieveSummaries(t *testing.T) {
	store := NewMemoryStore()
	run := NewRun("trades.csv")
	require.NotEqual(t, uuid.Nil, run.ID)

	summaries := []stats.Summary{
		{Symbol: "AAA", MaxTimeGap: 100, TotalVolume: 15, WeightedAveragePrice: 53, MaxTradedPrice: 60},
	}
	require.NoError(t, store.SaveSummaries(context.Background(), run, summaries))

	// Mutating the caller's slice must not change what was stored.
	summaries[0].Symbol = "ZZZ"

	gotRun, got, ok := store.Get(run.ID)
	require.True(t, ok)
	require.Equal(t, run, gotRun)
	require.Len(t, got, 1)
	require.Equal(t, "AAA", got[0].Symbol)
	require.Equal(t, 1, store.Runs())

	_, _, ok = store.Get(uuid.New())
	require.False(t, ok)
	require.NoError(t, store.Close())
}
