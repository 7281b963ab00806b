package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhoad/steamnews/internal/app"
	"github.com/nhoad/steamnews/internal/config"
	"github.com/nhoad/steamnews/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "steamnews start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("steamnews starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize engine", "error", err.Error())
		return err
	}
	defer engine.Close()

	if err := engine.Run(ctx); err != nil {
		return fmt.Errorf("engine run: %w", err)
	}

	return nil
}
