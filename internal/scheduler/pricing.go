package scheduler

import (
	"context"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Минимальная цена товара — одна единица валюты.
const minPriceCents = 100

// PricingJob периодически пересчитывает текущие цены товаров случайным
// отклонением от базовой цены. Цена каждый раз считается от base_price, а не
// от предыдущей, поэтому отклонения не накапливаются.
type PricingJob struct {
	repo     Repository
	notifier Notifier
	cache    Invalidator
	logger   *zap.Logger
	interval time.Duration
	rnd      *rand.Rand

	running atomic.Bool
}

// NewPricingJob создаёт задачу динамического ценообразования. notifier и cache
// могут быть nil: без шлюза подписки просто остаются несработавшими, без кэша
// пропускается инвалидация.
func NewPricingJob(repo Repository, notifier Notifier, cache Invalidator, logger *zap.Logger, interval time.Duration) *PricingJob {
	return &PricingJob{
		repo:     repo,
		notifier: notifier,
		cache:    cache,
		logger:   logger,
		interval: interval,
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Run запускает цикл пересчёта цен до отмены контекста.
func (j *PricingJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

// tick обходит каталог и пересчитывает цену каждого товара. Если предыдущий
// тик ещё не завершился, новый пропускается целиком.
func (j *PricingJob) tick(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Debug("pricing tick skipped, previous run still in progress")
		return
	}
	defer j.running.Store(false)

	products, err := j.repo.ListProductPricing(ctx)
	if err != nil {
		j.logger.Error("list products for repricing", zap.Error(err))
		return
	}

	for _, p := range products {
		newPrice := nextPrice(p.BaseCents, drawFactor(j.rnd))

		if err := j.repo.UpdateProductPrice(ctx, p.ID, newPrice); err != nil {
			j.logger.Error("update product price", zap.Int64("productID", p.ID), zap.Error(err))
			continue
		}

		// Проверка подписок сразу после смены цены этого товара, чтобы
		// снижение и его уведомление не расходились больше чем на тик.
		checkProductAlerts(ctx, j.repo, j.notifier, j.logger, p.ID, p.Name, newPrice)

		if j.cache != nil {
			j.cache.InvalidateProduct(ctx, p.ID)
		}
	}
}

// drawFactor возвращает случайный множитель отклонения: с вероятностью 0.3 —
// повышение до +2%, иначе — понижение до -10%.
func drawFactor(rnd *rand.Rand) float64 {
	if rnd.Float64() < 0.3 {
		return rnd.Float64() * 0.02
	}
	return -rnd.Float64() * 0.10
}

// nextPrice считает новую цену в центах от базовой, не ниже минимальной.
func nextPrice(baseCents int64, factor float64) int64 {
	price := int64(math.Round(float64(baseCents) * (1 + factor)))
	if price < minPriceCents {
		price = minPriceCents
	}
	return price
}
