package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/digibank/digibank-service/internal/config"
	"github.com/digibank/digibank-service/internal/database"
	"github.com/digibank/digibank-service/internal/logger"
	"github.com/digibank/digibank-service/internal/outbox"
	"github.com/digibank/digibank-service/internal/repo"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "internal/config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	kw := outbox.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kw.Close()

	relay := outbox.NewRelay(repo.NewRepository(gdb, nil, log), kw, log, cfg.Outbox.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("digibank-poller started", "topic", cfg.Kafka.Topic, "interval", cfg.Outbox.Interval.String())
	relay.Run(ctx, cfg.Outbox.Interval)
	log.Info("digibank-poller stopped")
}
