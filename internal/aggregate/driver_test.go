package aggregate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tradestats/internal/stats"
	"tradestats/internal/trade"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func process(t *testing.T, input string) (*Result, error) {
	t.Helper()
	return Process(context.Background(), strings.NewReader(input), zaptest.NewLogger(t))
}

func TestProcess_TwoTradesOneSymbol(t *testing.T) {
	res, err := process(t, "100,AAA,10,50\n200,AAA,5,60\n")
	require.NoError(t, err)

	require.Equal(t, 2, res.Lines)
	require.Equal(t, 2, res.Trades)
	require.Equal(t, []stats.Summary{
		{Symbol: "AAA", MaxTimeGap: 100, TotalVolume: 15, WeightedAveragePrice: 53, MaxTradedPrice: 60},
	}, res.Table.Summaries())
}

func TestProcess_MultipleSymbols(t *testing.T) {
	input := strings.Join([]string{
		"52924702,aaa,13,1136",
		"52924702,aac,20,477",
		"52925641,aab,31,907",
		"52927350,aab,29,724",
		"52928783,aac,21,638",
		"52930489,aaa,18,1222",
		"52931654,aaa,9,1077",
		"52933453,aab,9,756",
	}, "\n")

	res, err := process(t, input)
	require.NoError(t, err)

	require.Equal(t, []stats.Summary{
		// (13*1136 + 18*1222 + 9*1077) / 40 = 46457 / 40
		{Symbol: "aaa", MaxTimeGap: 5787, TotalVolume: 40, WeightedAveragePrice: 1161, MaxTradedPrice: 1222},
		// (31*907 + 29*724 + 9*756) / 69 = 55917 / 69
		{Symbol: "aab", MaxTimeGap: 6103, TotalVolume: 69, WeightedAveragePrice: 810, MaxTradedPrice: 907},
		// (20*477 + 21*638) / 41 = 22938 / 41
		{Symbol: "aac", MaxTimeGap: 4081, TotalVolume: 41, WeightedAveragePrice: 559, MaxTradedPrice: 638},
	}, res.Table.Summaries())
}

func TestProcess_SkipsBlankLines(t *testing.T) {
	res, err := process(t, "\n100,AAA,1,1\n   \n\r\n200,AAA,1,3\r\n")
	require.NoError(t, err)

	require.Equal(t, 5, res.Lines)
	require.Equal(t, 2, res.Trades)
	acc, ok := res.Table.Get("AAA")
	require.True(t, ok)
	require.Equal(t, int64(2), acc.WeightedAveragePrice())
}

func TestProcess_EmptyInput(t *testing.T) {
	res, err := process(t, "")
	require.NoError(t, err)
	require.Zero(t, res.Table.Len())
	require.Empty(t, res.Table.Summaries())
}

func TestProcess_Failures(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		wantErr     error
		wantLine    int
		wantSymbol  string
		wantSymbols []string
	}{
		{
			name:        "timestamp goes backwards within symbol",
			input:       "100,AAA,10,50\n50,AAA,5,60\n",
			wantErr:     trade.ErrOutOfOrder,
			wantLine:    2,
			wantSymbol:  "AAA",
			wantSymbols: []string{},
		},
		{
			name:        "timestamp goes backwards across symbols",
			input:       "100,AAA,10,50\n300,BBB,1,1\n200,CCC,1,1\n400,DDD,1,1\n",
			wantErr:     trade.ErrOutOfOrder,
			wantLine:    3,
			wantSymbol:  "CCC",
			wantSymbols: []string{"AAA", "BBB"},
		},
		{
			name:        "backwards timestamp drops in-flight symbol only",
			input:       "100,AAA,10,50\n300,BBB,1,1\n200,AAA,1,1\n",
			wantErr:     trade.ErrOutOfOrder,
			wantLine:    3,
			wantSymbol:  "AAA",
			wantSymbols: []string{"BBB"},
		},
		{
			name:        "symbol too long",
			input:       "100,AAA,10,50\n200,ABCD,1,1\n300,BBB,1,1\n",
			wantErr:     trade.ErrSymbolLength,
			wantLine:    2,
			wantSymbol:  "ABCD",
			wantSymbols: []string{"AAA"},
		},
		{
			name:        "zero quantity",
			input:       "100,AAA,10,50\n200,BBB,0,1\n",
			wantErr:     trade.ErrQuantity,
			wantLine:    2,
			wantSymbol:  "BBB",
			wantSymbols: []string{"AAA"},
		},
		{
			name:        "negative price",
			input:       "100,AAA,10,-50\n",
			wantErr:     trade.ErrPrice,
			wantLine:    1,
			wantSymbol:  "AAA",
			wantSymbols: []string{},
		},
		{
			name:        "timestamp past end of day",
			input:       "100,AAA,10,50\n86400000000,BBB,1,1\n",
			wantErr:     trade.ErrTimestampOutOfDay,
			wantLine:    2,
			wantSymbol:  "BBB",
			wantSymbols: []string{"AAA"},
		},
		{
			name:        "malformed line",
			input:       "100,AAA,10,50\n200;BBB;1;1\n",
			wantErr:     ErrParse,
			wantLine:    2,
			wantSymbols: []string{"AAA"},
		},
		{
			name:        "line too long",
			input:       "100,AAA,1,1\n200,BBB," + strings.Repeat("1", MaxLineLength+1) + ",1\n300,CCC,1,1\n",
			wantErr:     ErrParse,
			wantLine:    2,
			wantSymbols: []string{"AAA"},
		},
		{
			name:        "volume overflow",
			input:       "100,AAA,9223372036854775807,1\n200,AAA,1,1\n",
			wantErr:     stats.ErrNonPositiveVolume,
			wantLine:    2,
			wantSymbol:  "AAA",
			wantSymbols: []string{},
		},
		{
			name:        "notional overflow on first trade",
			input:       "100,BBB,1,1\n100,AAA,4611686018427387904,2\n",
			wantErr:     stats.ErrNotionalOverflow,
			wantLine:    2,
			wantSymbol:  "AAA",
			wantSymbols: []string{"BBB"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := process(t, tc.input)
			require.Error(t, err)
			require.ErrorIs(t, err, tc.wantErr)

			var lineErr *LineError
			require.True(t, errors.As(err, &lineErr), "expected *LineError, got %T", err)
			require.Equal(t, tc.wantLine, lineErr.Line)
			require.Equal(t, tc.wantSymbol, lineErr.Symbol)

			require.NotNil(t, res)
			require.Equal(t, tc.wantLine, res.Lines)
			require.Equal(t, tc.wantSymbols, res.Table.Symbols())
		})
	}
}

func TestProcess_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Process(ctx, strings.NewReader("100,AAA,1,1\n"), zaptest.NewLogger(t))
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, res.Lines)
}

func TestLineError_Message(t *testing.T) {
	err := &LineError{Line: 7, Symbol: "AAA", Err: trade.ErrQuantity}
	require.Equal(t, "line 7 (AAA): invalid trade record: quantity must be positive", err.Error())

	err = &LineError{Line: 3, Err: ErrParse}
	require.Equal(t, "line 3: malformed trade line", err.Error())
}
