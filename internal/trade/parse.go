package trade

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a line cannot be split into the four trade fields.
var ErrMalformed = errors.New("malformed trade line")

const fieldCount = 4

// ParseLine converts a "<timestamp>,<symbol>,<quantity>,<price>" line into an Event.
// Surrounding whitespace on each field is ignored. Parsing does not validate domain
// rules; negative quantities and prices are returned as-is for Validate to reject.
func ParseLine(line string) (Event, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) != fieldCount {
		return Event{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformed, fieldCount, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	ts, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: timestamp: %w", ErrMalformed, err)
	}
	if fields[1] == "" {
		return Event{}, fmt.Errorf("%w: empty symbol", ErrMalformed)
	}
	qty, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: quantity: %w", ErrMalformed, err)
	}
	price, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: price: %w", ErrMalformed, err)
	}

	return Event{
		Timestamp: ts,
		Symbol:    fields[1],
		Quantity:  qty,
		Price:     price,
	}, nil
}
