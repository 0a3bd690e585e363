package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tradestats/config"
	"tradestats/internal/pipeline"
	"tradestats/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load(os.Getenv("TRADESTATS_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rep, err := pipeline.Run(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal("trade log run failed", zap.Error(err))
	}

	log.Info("output file successfully created",
		zap.String("path", rep.Output),
		zap.Int("symbols", len(rep.Summaries)),
		zap.String("run_id", rep.Run.ID.String()))
}
