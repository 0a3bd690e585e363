package stats

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalid is wrapped by every error that puts an Accumulator in its invalid state.
	ErrInvalid = errors.New("symbol statistics invalid")

	ErrNonMonotonic      = fmt.Errorf("%w: timestamp before previous trade of symbol", ErrInvalid)
	ErrNonPositiveVolume = fmt.Errorf("%w: total volume is not positive", ErrInvalid)
	ErrNotionalOverflow  = fmt.Errorf("%w: traded notional overflows", ErrInvalid)
)

// Accumulator keeps running statistics for a single symbol.
//
// Once an Ingest call fails the accumulator stays invalid: every later Ingest
// returns the same error and the getters keep the values from before the failure.
type Accumulator struct {
	maxTimeGap           uint64
	totalVolume          int64
	maxPrice             int64
	weightedAveragePrice int64

	err           error
	lastTimestamp uint64

	// notional caches the sum of price*quantity over priceToQuantity.
	notional        int64
	priceToQuantity map[int64]int64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		priceToQuantity: make(map[int64]int64),
	}
}

// Ingest folds one trade into the statistics. first must be true for the
// symbol's first trade, which sets the reference timestamp without producing a gap.
func (a *Accumulator) Ingest(first bool, timestamp uint64, quantity, price int64) error {
	if a.err != nil {
		return a.err
	}

	// All checks run before any field is touched so a failure leaves the
	// previous snapshot intact.
	gap := uint64(0)
	if !first {
		if timestamp < a.lastTimestamp {
			return a.fail(fmt.Errorf("%w (previous %d, got %d)", ErrNonMonotonic, a.lastTimestamp, timestamp))
		}
		gap = timestamp - a.lastTimestamp
	}

	volume, ok := addInt64(a.totalVolume, quantity)
	if !ok || volume <= 0 {
		return a.fail(fmt.Errorf("%w (adding %d to %d)", ErrNonPositiveVolume, quantity, a.totalVolume))
	}

	tradeNotional, ok := mulInt64(price, quantity)
	if !ok {
		return a.fail(fmt.Errorf("%w (%d x %d)", ErrNotionalOverflow, price, quantity))
	}
	notional, ok := addInt64(a.notional, tradeNotional)
	if !ok {
		return a.fail(fmt.Errorf("%w (adding %d to %d)", ErrNotionalOverflow, tradeNotional, a.notional))
	}

	a.lastTimestamp = timestamp
	if gap > a.maxTimeGap {
		a.maxTimeGap = gap
	}
	if price > a.maxPrice {
		a.maxPrice = price
	}
	a.totalVolume = volume
	a.priceToQuantity[price] += quantity
	a.notional = notional
	a.weightedAveragePrice = a.notional / a.totalVolume

	return nil
}

func (a *Accumulator) fail(err error) error {
	a.err = err
	return err
}

// Recompute rescans the price distribution and returns the weighted average price
// it implies. It must always agree with WeightedAveragePrice.
func (a *Accumulator) Recompute() int64 {
	var sum, volume int64
	for price, qty := range a.priceToQuantity {
		sum += price * qty
		volume += qty
	}
	if volume == 0 {
		return 0
	}
	return sum / volume
}

func (a *Accumulator) MaxTimeGap() uint64 { return a.maxTimeGap }

func (a *Accumulator) TotalVolume() int64 { return a.totalVolume }

func (a *Accumulator) MaxTradedPrice() int64 { return a.maxPrice }

func (a *Accumulator) WeightedAveragePrice() int64 { return a.weightedAveragePrice }

func (a *Accumulator) IsInvalid() bool { return a.err != nil }

// Err returns the error that invalidated the accumulator, or nil.
func (a *Accumulator) Err() error { return a.err }

// addInt64 returns a+b and whether the sum fit in an int64.
func addInt64(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return s, false
	}
	return s, true
}

// mulInt64 returns a*b and whether the product fit in an int64.
func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return p, false
	}
	return p, true
}
