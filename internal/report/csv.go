package report

import (
	"bufio"
	"fmt"
	"io"

	"tradestats/internal/stats"
)

// WriteCSV writes one "symbol,maxTimeGap,totalVolume,weightedAveragePrice,maxTradedPrice"
// line per summary, without a header.
func WriteCSV(w io.Writer, summaries []stats.Summary) error {
	bw := bufio.NewWriter(w)
	for _, s := range summaries {
		if _, err := fmt.Fprintf(bw, "%s,%d,%d,%d,%d\n",
			s.Symbol,
			s.MaxTimeGap,
			s.TotalVolume,
			s.WeightedAveragePrice,
			s.MaxTradedPrice,
		); err != nil {
			return fmt.Errorf("write %s row: %w", s.Symbol, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush summary rows: %w", err)
	}
	return nil
}
