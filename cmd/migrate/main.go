package main

import (
	"fmt"
	"os"

	"github.com/digibank/digibank-service/internal/config"
	"github.com/digibank/digibank-service/internal/database"
	"github.com/digibank/digibank-service/internal/logger"
)

// Main entry point for migration
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

	// migrate explicitly regardless of auto_migrate
	cfg.Database.AutoMigrate = false
	gdb, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := database.Migrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Infow("schema migrated", "driver", cfg.Database.Driver)
}
