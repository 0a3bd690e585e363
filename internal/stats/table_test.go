package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable_SymbolsSorted(t *testing.T) {
	table := NewTable()
	for _, sym := range []string{"ZZZ", "AAA", "MMM", "ABC"} {
		table.Add(sym, NewAccumulator())
	}

	require.Equal(t, 4, table.Len())
	require.Equal(t, []string{"AAA", "ABC", "MMM", "ZZZ"}, table.Symbols())
}

func TestTable_GetRemove(t *testing.T) {
	table := NewTable()
	acc := NewAccumulator()
	table.Add("AAA", acc)

	got, ok := table.Get("AAA")
	require.True(t, ok)
	require.Same(t, acc, got)

	table.Remove("AAA")
	_, ok = table.Get("AAA")
	require.False(t, ok)
	require.Zero(t, table.Len())
}

func TestTable_Summaries(t *testing.T) {
	table := NewTable()

	bbb := NewAccumulator()
	require.NoError(t, bbb.Ingest(true, 10, 2, 7))
	table.Add("BBB", bbb)

	aaa := NewAccumulator()
	require.NoError(t, aaa.Ingest(true, 100, 10, 50))
	require.NoError(t, aaa.Ingest(false, 200, 5, 60))
	table.Add("AAA", aaa)

	bad := NewAccumulator()
	require.NoError(t, bad.Ingest(true, 100, 1, 1))
	require.Error(t, bad.Ingest(false, 50, 1, 1))
	table.Add("CCC", bad)

	require.Equal(t, []Summary{
		{Symbol: "AAA", MaxTimeGap: 100, TotalVolume: 15, WeightedAveragePrice: 53, MaxTradedPrice: 60},
		{Symbol: "BBB", MaxTimeGap: 0, TotalVolume: 2, WeightedAveragePrice: 7, MaxTradedPrice: 7},
	}, table.Summaries())
}

func TestTable_SummariesEmpty(t *testing.T) {
	require.Empty(t, NewTable().Summaries())
}
