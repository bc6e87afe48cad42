package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// AlertJob периодически проверяет несработавшие подписки на снижение цены по
// текущим ценам каталога. Работает независимо от PricingJob и не блокирует его.
type AlertJob struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
	interval time.Duration

	running atomic.Bool
}

// NewAlertJob создаёт задачу проверки подписок на цену.
func NewAlertJob(repo Repository, notifier Notifier, logger *zap.Logger, interval time.Duration) *AlertJob {
	return &AlertJob{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		interval: interval,
	}
}

// Run запускает цикл проверки подписок до отмены контекста.
func (j *AlertJob) Run(ctx context.Context) {
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

func (j *AlertJob) tick(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Debug("alert tick skipped, previous run still in progress")
		return
	}
	defer j.running.Store(false)

	products, err := j.repo.ListProductPricing(ctx)
	if err != nil {
		j.logger.Error("list products for alert scan", zap.Error(err))
		return
	}

	for _, p := range products {
		checkProductAlerts(ctx, j.repo, j.notifier, j.logger, p.ID, p.Name, p.PriceCents)
	}
}
