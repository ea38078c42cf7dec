package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pesaflow/pesaflow-backend/internal/api"
	"github.com/pesaflow/pesaflow-backend/internal/auth"
	"github.com/pesaflow/pesaflow-backend/internal/config"
	"github.com/pesaflow/pesaflow-backend/internal/db"
	"github.com/pesaflow/pesaflow-backend/internal/logger"
	"github.com/pesaflow/pesaflow-backend/internal/metrics"
	"github.com/pesaflow/pesaflow-backend/internal/middleware"
	"github.com/pesaflow/pesaflow-backend/internal/notify"
	"github.com/pesaflow/pesaflow-backend/internal/repository/postgres"
	"github.com/pesaflow/pesaflow-backend/internal/services"
	"github.com/pesaflow/pesaflow-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	repos := postgres.NewRepositories(pool)

	metrics.Init()
	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()

	pub := notify.NewNoop()
	if cfg.AMQPURL != "" {
		p, err := notify.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Warn("amqp connect failed, notifications degraded", "err", err)
		} else {
			pub = p
		}
	}
	defer pub.Close()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("redis url invalid, using local rate limiter", "err", err)
		} else {
			rdb = redis.NewClient(opts)
			defer rdb.Close()
		}
	}

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)

	userSvc := services.NewUserService(repos.Ledger, repos.Users, repos.Accounts, repos.Agents, tm, repos.AuditLogs)
	ledgerSvc := services.NewLedgerService(repos.Ledger, repos.Transactions, repos.AuditLogs, repos.Notifications, pub, wp, cfg.SystemAccountID)
	loanSvc := services.NewLoanService(repos.Ledger, repos.Loans, repos.AuditLogs, repos.Notifications, pub, wp, cfg.SystemAccountID)

	r := api.NewRouter(api.RouterDeps{
		Cfg:     cfg,
		Redis:   rdb,
		AuthMW:  middleware.NewAuthMiddleware(tm),
		UserSvc: userSvc,
		Ledger:  ledgerSvc,
		Loans:   loanSvc,
		Limits:  repos.Limits,
		Bills:   repos.Bills,
		Notes:   repos.Notifications,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
