package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventpass-backend/internal/config"
	payAdapters "eventpass-backend/internal/infra/adapters/payment"
	"eventpass-backend/internal/infra/api"
	pg "eventpass-backend/internal/infra/db/postgres"
	"eventpass-backend/internal/infra/logging"
	"eventpass-backend/internal/infra/metrics"
	red "eventpass-backend/internal/infra/redis"
	"eventpass-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	txRepo := pg.NewTransactionRepo(pool)
	passRepo := pg.NewPassRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Gateway (validated here; missing credentials is startup-fatal) ----
	gateway, err := payAdapters.NewRazorpayGateway(cfg.Razorpay)
	if err != nil {
		logger.Fatal().Err(err).Msg("razorpay gateway")
	}

	// ---- Use cases ----
	passUC := usecase.NewPassUseCase(passRepo, userRepo, locker, tm, logger)
	paymentUC := usecase.NewPaymentUseCase(
		txRepo, passUC, gateway,
		cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret,
		logger,
	)

	// ---- HTTP ----
	authMgr := api.NewAuthManager(cfg.Auth.JWTSecret)
	srv := api.NewServer(paymentUC, passUC, authMgr, cfg.Server.RequestTimeout, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("gateway", gateway.Name()).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
