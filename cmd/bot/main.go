package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivanoskov/fintracker/internal/app"
	"github.com/ivanoskov/fintracker/internal/config"
	"github.com/ivanoskov/fintracker/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn(context.Background(), "app", "app.close", logger.Err(err))
		}
	}()

	if err := a.Run(ctx); err != nil {
		return err
	}
	logger.Info(context.Background(), "app", "app.stopped")
	return nil
}
