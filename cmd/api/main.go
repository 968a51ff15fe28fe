package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/elegance-atelier/sales-api/internal/auth"
	"github.com/elegance-atelier/sales-api/internal/checkout"
	"github.com/elegance-atelier/sales-api/internal/config"
	"github.com/elegance-atelier/sales-api/internal/gateway"
	"github.com/elegance-atelier/sales-api/internal/httpx"
	kafkax "github.com/elegance-atelier/sales-api/internal/kafka"
	"github.com/elegance-atelier/sales-api/internal/postgres"
	"github.com/elegance-atelier/sales-api/internal/reconcile"
	"github.com/elegance-atelier/sales-api/internal/redisx"
	"github.com/elegance-atelier/sales-api/internal/sales"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	prodCreated := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleCreated, 1024, logger)
	prodCreated.Start(ctx)
	prodSettled := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleSettled, 1024, logger)
	prodSettled.Start(ctx)

	// Repos & services
	userRepo := &auth.UserRepo{DB: db}
	issuer := auth.NewIssuer(cfg.JWTSecret)
	authSvc := auth.NewService(userRepo, issuer, logger)

	saleRepo := &sales.Repo{DB: db}
	catalog := &sales.Catalog{DB: db, Redis: rdb, Logger: logger}
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAccessToken)

	redirects := gateway.RedirectURLs{
		Success: cfg.CheckoutSuccessURL,
		Failure: cfg.CheckoutFailureURL,
		Pending: cfg.CheckoutPendingURL,
	}
	plans := map[string]gateway.SubscriptionPlan{
		"vip": {Reason: "Elegance VIP club", AmountCents: 4900, FrequencyMonths: 1, BackURL: cfg.CheckoutSuccessURL},
	}
	checkoutSvc := checkout.NewService(catalog, saleRepo, gw, prodCreated,
		redirects, plans, cfg.ServiceName, logger)

	reconciler := &reconcile.Handler{
		Gateway:   gw,
		Ledger:    saleRepo,
		Redis:     rdb,
		Publisher: prodSettled,
		Service:   cfg.ServiceName,
		Logger:    logger,
	}

	// Router
	router := httpx.NewRouter(cfg.AllowedOrigin, logger)
	api := &httpx.API{
		Auth:  &httpx.AuthHandler{Auth: authSvc, Logger: logger},
		Sales: &httpx.SalesHandler{
			Ledger:    saleRepo,
			Catalog:   catalog,
			Checkout:  checkoutSvc,
			Publisher: prodSettled,
			Service:   cfg.ServiceName,
			Logger:    logger,
		},
		Webhook: &httpx.WebhookHandler{
			Reconciler:    reconciler,
			WebhookSecret: cfg.GatewayWebhookSecret,
			Logger:        logger,
		},
		Verifier: authSvc,
	}
	api.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	prodCreated.Close() // stop intake -> flush & close writer
	prodSettled.Close()
	prodCreated.WaitClosed()
	prodSettled.WaitClosed()
}
