package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tradestats/config"
	"tradestats/internal/aggregate"
	"tradestats/internal/report"
	"tradestats/internal/stats"
	"tradestats/pkg/storage"
	"tradestats/pkg/storage/postgres"
	"tradestats/pkg/storage/sqlite"

	"go.uber.org/zap"
)

var (
	// ErrOpenInput is returned when the trade log cannot be opened. No output is written.
	ErrOpenInput = errors.New("cannot open input file")
	// ErrCreateOutput is returned when the output file cannot be created.
	ErrCreateOutput = errors.New("cannot create output file")
	// ErrNoInput is returned when no input path is configured or entered.
	ErrNoInput = errors.New("no input file given")
)

// Report describes a finished run.
type Report struct {
	Run       storage.Run
	Input     string
	Output    string
	Lines     int
	Trades    int
	Summaries []stats.Summary
}

type options struct {
	prompt   io.Reader
	promptTo io.Writer
	store    storage.Store
}

type Option func(*options)

// WithPrompt sets where the input file name is read from when none is configured.
func WithPrompt(r io.Reader, w io.Writer) Option {
	return func(o *options) {
		o.prompt = r
		o.promptTo = w
	}
}

// WithStore exports summaries to store instead of the one selected by configuration.
func WithStore(store storage.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// Run reads the configured trade log, writes the per-symbol summary file and
// optionally exports the summaries.
//
// The output file is written whenever the input could be opened, including when
// processing stopped on a bad record; in that case it holds the symbols finalized
// before the failure and the record error is returned.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Report, error) {
	o := options{prompt: os.Stdin, promptTo: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	inputPath, err := resolveInput(cfg.Input.Path, o.prompt, o.promptTo)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Run:    storage.NewRun(inputPath),
		Input:  inputPath,
		Output: cfg.Output.Path,
	}
	logger = logger.With(zap.String("run_id", rep.Run.ID.String()))

	result, procErr := processFile(ctx, inputPath, logger)
	if result == nil {
		return rep, procErr
	}

	rep.Lines = result.Lines
	rep.Trades = result.Trades
	rep.Summaries = result.Table.Summaries()
	rep.Run.Complete = procErr == nil
	var lineErr *aggregate.LineError
	if errors.As(procErr, &lineErr) {
		rep.Run.FailedLine = lineErr.Line
	}

	if err := writeOutput(cfg.Output.Path, rep.Summaries); err != nil {
		logger.Error("failed to write output", zap.String("path", cfg.Output.Path), zap.Error(err))
		return rep, errors.Join(procErr, err)
	}
	logger.Info("output written",
		zap.String("path", cfg.Output.Path),
		zap.Int("symbols", len(rep.Summaries)),
		zap.Bool("complete", rep.Run.Complete))

	if err := export(ctx, cfg, logger, o.store, rep); err != nil {
		logger.Error("failed to export summaries", zap.Error(err))
		return rep, errors.Join(procErr, err)
	}

	return rep, procErr
}

// resolveInput returns path, or asks for one on prompt when path is empty.
func resolveInput(path string, prompt io.Reader, promptTo io.Writer) (string, error) {
	if path != "" {
		return path, nil
	}
	if prompt == nil {
		return "", ErrNoInput
	}

	fmt.Fprintln(promptTo, "Please enter input file name:")
	line, err := bufio.NewReader(prompt).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input file name: %w", err)
	}
	path = strings.TrimSpace(line)
	if path == "" {
		return "", ErrNoInput
	}
	return path, nil
}

// processFile returns a nil result only when the file could not be opened.
func processFile(ctx context.Context, path string, logger *zap.Logger) (*aggregate.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("failed to open input", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w %s: %w", ErrOpenInput, path, err)
	}
	defer f.Close()

	logger.Info("processing trade log", zap.String("path", path))
	return aggregate.Process(ctx, f, logger)
}

func writeOutput(path string, summaries []stats.Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrCreateOutput, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	return report.WriteCSV(f, summaries)
}

// export saves the summaries to store, or to the store selected by cfg.Storage when
// store is nil.
func export(ctx context.Context, cfg *config.Config, logger *zap.Logger, store storage.Store, rep *Report) error {
	if store == nil {
		opened, err := OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		if opened == nil {
			return nil
		}
		defer opened.Close()
		store = opened
	}

	if err := store.SaveSummaries(ctx, rep.Run, rep.Summaries); err != nil {
		return err
	}
	logger.Info("summaries exported",
		zap.String("driver", cfg.Storage.Driver),
		zap.Int("rows", len(rep.Summaries)))
	return nil
}

// OpenStore opens the export sink selected by cfg.Storage.Driver. It returns a nil
// Store when exporting is disabled.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "", config.StorageNone:
		return nil, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoragePostgres:
		client, err := postgres.InitializeAndMigrate(ctx, cfg.Postgres, cfg.App.Environment, cfg.Storage.CreateDB)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
