package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/elegance-atelier/sales-api/internal/audit"
	"github.com/elegance-atelier/sales-api/internal/config"
	kafkax "github.com/elegance-atelier/sales-api/internal/kafka"
	"github.com/elegance-atelier/sales-api/internal/postgres"
	"github.com/elegance-atelier/sales-api/internal/redisx"
	"github.com/elegance-atelier/sales-api/internal/sales"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Repo:        &audit.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-audit",
		Logger:      logger,
	}

	group := getenv("AUDIT_GROUP", "settlement-audit")
	workers := mustAtoi(os.Getenv("AUDIT_WORKERS"), "4")

	// one consumer per ledger topic, same handler
	for _, topic := range []string{sales.TopicSaleCreated, sales.TopicSaleSettled} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers, logger)
		go func(topic string) {
			logger.Info("audit consumer started",
				zap.String("group", group), zap.String("topic", topic), zap.Int("workers", workers))
			if err := cons.Start(ctx, svc.HandleEvent); err != nil {
				logger.Error("consumer exit", zap.String("topic", topic), zap.Error(err))
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down audit consumers")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
