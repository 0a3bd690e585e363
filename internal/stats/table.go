package stats

import "sort"

// Summary is the final snapshot of one symbol, in output column order.
type Summary struct {
	Symbol               string `json:"symbol"`
	MaxTimeGap           uint64 `json:"max_time_gap"`           // microseconds
	TotalVolume          int64  `json:"total_volume"`           // sum of quantities
	WeightedAveragePrice int64  `json:"weighted_average_price"` // truncated
	MaxTradedPrice       int64  `json:"max_traded_price"`
}

// Table maps each symbol to its Accumulator.
//
// A Table is owned by a single run and is not safe for concurrent use.
type Table struct {
	data map[string]*Accumulator
}

func NewTable() *Table {
	return &Table{
		data: make(map[string]*Accumulator),
	}
}

// Get returns the accumulator for symbol, if one has been added.
func (t *Table) Get(symbol string) (*Accumulator, bool) {
	acc, ok := t.data[symbol]
	return acc, ok
}

// Add stores acc under symbol, replacing any existing entry.
func (t *Table) Add(symbol string, acc *Accumulator) {
	t.data[symbol] = acc
}

// Remove drops symbol from the table.
func (t *Table) Remove(symbol string) {
	delete(t.data, symbol)
}

func (t *Table) Len() int {
	return len(t.data)
}

// Symbols returns all symbols in ascending order.
func (t *Table) Symbols() []string {
	out := make([]string, 0, len(t.data))
	for sym := range t.data {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Summaries returns one Summary per valid symbol, ordered by symbol.
// Accumulators left invalid are skipped.
func (t *Table) Summaries() []Summary {
	symbols := t.Symbols()
	out := make([]Summary, 0, len(symbols))
	for _, sym := range symbols {
		acc := t.data[sym]
		if acc.IsInvalid() {
			continue
		}
		out = append(out, Summary{
			Symbol:               sym,
			MaxTimeGap:           acc.MaxTimeGap(),
			TotalVolume:          acc.TotalVolume(),
			WeightedAveragePrice: acc.WeightedAveragePrice(),
			MaxTradedPrice:       acc.MaxTradedPrice(),
		})
	}
	return out
}
