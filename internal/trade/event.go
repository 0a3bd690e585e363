package trade

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MicrosPerDay is the number of microseconds in 24 hours. A trade log covers at most
// one trading day, so every timestamp must be strictly below this bound.
const MicrosPerDay uint64 = 24 * 60 * 60 * 1000 * 1000

// SymbolLength is the required length of a trade symbol (e.g., "AAA").
const SymbolLength = 3

// Event is a single trade parsed from one line of the trade log.
type Event struct {
	Timestamp uint64 // microseconds since start of day
	Symbol    string // instrument identifier, exactly SymbolLength characters
	Quantity  int64  // traded quantity
	Price     int64  // traded price
}

var (
	// ErrInvalidRecord is wrapped by every validation failure.
	ErrInvalidRecord = errors.New("invalid trade record")

	ErrTimestampOutOfDay = fmt.Errorf("%w: timestamp outside trading day", ErrInvalidRecord)
	ErrSymbolLength      = fmt.Errorf("%w: symbol must be %d characters", ErrInvalidRecord, SymbolLength)
	ErrQuantity          = fmt.Errorf("%w: quantity must be positive", ErrInvalidRecord)
	ErrPrice             = fmt.Errorf("%w: price must be positive", ErrInvalidRecord)
	ErrOutOfOrder        = fmt.Errorf("%w: timestamp before previous trade", ErrInvalidRecord)
)

// Validate checks e against the domain rules and the timestamp of the previous
// trade in the log (any symbol). It has no side effects.
func Validate(e Event, prevTimestamp uint64) error {
	if e.Timestamp >= MicrosPerDay {
		return fmt.Errorf("%w (got %d)", ErrTimestampOutOfDay, e.Timestamp)
	}
	if utf8.RuneCountInString(e.Symbol) != SymbolLength {
		return fmt.Errorf("%w (got %q)", ErrSymbolLength, e.Symbol)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("%w (got %d)", ErrQuantity, e.Quantity)
	}
	if e.Price <= 0 {
		return fmt.Errorf("%w (got %d)", ErrPrice, e.Price)
	}
	if prevTimestamp > e.Timestamp {
		return fmt.Errorf("%w (previous %d, got %d)", ErrOutOfOrder, prevTimestamp, e.Timestamp)
	}
	return nil
}
