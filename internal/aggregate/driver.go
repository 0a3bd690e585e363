package aggregate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"tradestats/internal/stats"
	"tradestats/internal/trade"

	"go.uber.org/zap"
)

// ErrParse is wrapped when a line cannot be decomposed into a trade record.
var ErrParse = trade.ErrMalformed

// MaxLineLength bounds a single input line. Longer lines fail as malformed.
const MaxLineLength = 1 << 20

// LineError reports the first record that stopped a run.
type LineError struct {
	Line   int    // 1-based line number in the input
	Symbol string // empty when the line could not be parsed
	Err    error
}

func (e *LineError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Symbol, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Result is the outcome of processing a trade log.
type Result struct {
	Table  *stats.Table
	Lines  int // lines read, including the failing one
	Trades int // records accepted
}

// Process reads trades from r, one per line, and accumulates per-symbol statistics.
//
// Processing halts on the first malformed, invalid or inconsistent record and
// returns a *LineError. The returned Result is always non-nil and holds every symbol
// finalized before the failure; the symbol named by the failing record is removed.
func Process(ctx context.Context, r io.Reader, logger *zap.Logger) (*Result, error) {
	res := &Result{Table: stats.NewTable()}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)
	var prevTimestamp uint64

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("processing interrupted after line %d: %w", res.Lines, err)
		}
		res.Lines++

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		event, err := trade.ParseLine(line)
		if err != nil {
			return res, fail(logger, &LineError{Line: res.Lines, Err: err})
		}

		if err := ingest(res.Table, event, prevTimestamp, logger); err != nil {
			res.Table.Remove(event.Symbol)
			return res, fail(logger, &LineError{Line: res.Lines, Symbol: event.Symbol, Err: err})
		}

		prevTimestamp = event.Timestamp
		res.Trades++
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			res.Lines++
			return res, fail(logger, &LineError{
				Line: res.Lines,
				Err:  fmt.Errorf("%w: line longer than %d bytes", ErrParse, MaxLineLength),
			})
		}
		return res, fmt.Errorf("reading trade log after line %d: %w", res.Lines, err)
	}

	logger.Info("trade log processed",
		zap.Int("lines", res.Lines),
		zap.Int("trades", res.Trades),
		zap.Int("symbols", res.Table.Len()))

	return res, nil
}

// ingest validates event and routes it to its symbol's accumulator.
func ingest(table *stats.Table, event trade.Event, prevTimestamp uint64, logger *zap.Logger) error {
	if err := trade.Validate(event, prevTimestamp); err != nil {
		return err
	}

	acc, ok := table.Get(event.Symbol)
	if !ok {
		acc = stats.NewAccumulator()
		if err := acc.Ingest(true, event.Timestamp, event.Quantity, event.Price); err != nil {
			return err
		}
		table.Add(event.Symbol, acc)
		logger.Debug("new symbol", zap.String("symbol", event.Symbol), zap.Uint64("timestamp", event.Timestamp))
		return nil
	}

	return acc.Ingest(false, event.Timestamp, event.Quantity, event.Price)
}

func fail(logger *zap.Logger, err *LineError) error {
	fields := []zap.Field{zap.Int("line", err.Line), zap.Error(err.Err)}
	if err.Symbol != "" {
		fields = append(fields, zap.String("symbol", err.Symbol))
	}
	switch {
	case errors.Is(err, trade.ErrMalformed):
		logger.Error("malformed trade line", fields...)
	case errors.Is(err, trade.ErrInvalidRecord):
		logger.Error("invalid trade record", fields...)
	case errors.Is(err, stats.ErrInvalid):
		logger.Error("inconsistent trade for symbol", fields...)
	default:
		logger.Error("trade rejected", fields...)
	}
	return err
}
