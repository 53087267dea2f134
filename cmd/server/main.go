package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digibank/digibank-service/internal/config"
	"github.com/digibank/digibank-service/internal/database"
	"github.com/digibank/digibank-service/internal/logger"
	"github.com/digibank/digibank-service/internal/repo"
	"github.com/digibank/digibank-service/internal/service"
	"github.com/digibank/digibank-service/internal/session"
	httptransport "github.com/digibank/digibank-service/internal/transport/http"

	"github.com/go-redis/redis/v8"
)

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "internal/config/config.yaml"
}

func main() {
	// 1. load config
	cfg, err := config.Load(configPath())
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. database
	gdb, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	// 4. redis, optional: without it balances are read from the database and /v1/events is unavailable
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		defer rdb.Close()
	}

	// 5. repo & service
	repository := repo.NewRepository(gdb, rdb, log)
	svc := service.NewWalletService(repository, log, cfg.Transfer.MaxRetries)
	sessions := session.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// 6. gin router
	router := httptransport.NewRouter(svc, sessions, cfg.RateLimit, log)

	// 7. serve
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Infof("digibank-server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("forced shutdown: %v", err)
	}
}
