// Package main запускает HTTP-сервер и фоновые планировщики магазина.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/cache"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/config"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/handler"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/middleware"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/notifier"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/repository"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/scheduler"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var catalog service.Catalog = repo
	var productCache *cache.ProductCache
	if cfg.RedisAddress != "" {
		rdb, err := cache.Connect(cfg.RedisAddress)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer rdb.Close()

		productCache = cache.NewProductCache(repo, rdb, logger)
		catalog = productCache
	}

	var notifierClient *notifier.Client
	if cfg.NotifierAddress != "" {
		notifierClient = notifier.NewClient(cfg.NotifierAddress)
	} else {
		sugar.Info("notifier address is empty, price alerts will stay pending")
	}

	svc := service.NewService(repo, catalog)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	// Интерфейсные значения для планировщиков: nil-указатели не должны
	// превращаться в не-nil интерфейсы.
	var schedNotifier scheduler.Notifier
	if notifierClient != nil {
		schedNotifier = notifierClient
	}
	var invalidator scheduler.Invalidator
	if productCache != nil {
		invalidator = productCache
	}

	pricingJob := scheduler.NewPricingJob(repo, schedNotifier, invalidator, logger, cfg.PricingInterval)
	alertJob := scheduler.NewAlertJob(repo, schedNotifier, logger, cfg.AlertInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновых планировщиков цен и подписок
	g.Go(func() error {
		pricingJob.Run(ctx)
		return nil
	})
	g.Go(func() error {
		alertJob.Run(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
