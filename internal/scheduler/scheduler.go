// Package scheduler содержит фоновые задачи магазина: периодический пересчёт
// цен и рассылку уведомлений о снижении цены. Обе задачи — одиночные циклы по
// таймеру; опоздавший тик пропускается, а не ставится в очередь.
package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый планировщиками.
type Repository interface {
	ListProductPricing(ctx context.Context) ([]repository.ProductPricing, error)
	UpdateProductPrice(ctx context.Context, productID, priceCents int64) error
	PendingAlertsForProduct(ctx context.Context, productID int64) ([]repository.PendingAlert, error)
	MarkAlertNotified(ctx context.Context, alertID int64) error
}

// Notifier описывает шлюз уведомлений о снижении цены.
type Notifier interface {
	NotifyPriceDrop(ctx context.Context, email, productName string, currentCents, targetCents int64) error
}

// Invalidator сбрасывает кэш товара после изменения цены.
type Invalidator interface {
	InvalidateProduct(ctx context.Context, productID int64)
}

// checkProductAlerts обрабатывает несработавшие подписки на один товар: для
// каждой, чью целевую цену текущая цена достигла, отправляет уведомление и
// только после успешной отправки взводит одноразовый флаг. Ошибка шлюза
// оставляет флаг снятым, и подписка будет повторена на следующем тике.
func checkProductAlerts(ctx context.Context, repo Repository, notifier Notifier, logger *zap.Logger, productID int64, productName string, priceCents int64) {
	if notifier == nil {
		return
	}

	alerts, err := repo.PendingAlertsForProduct(ctx, productID)
	if err != nil {
		logger.Error("list pending alerts", zap.Int64("productID", productID), zap.Error(err))
		return
	}

	for _, a := range alerts {
		if priceCents > a.TargetCents {
			continue
		}

		if err := notifier.NotifyPriceDrop(ctx, a.Email, productName, priceCents, a.TargetCents); err != nil {
			logger.Warn("price drop notification failed, will retry next tick",
				zap.Int64("alertID", a.ID),
				zap.Int64("productID", productID),
				zap.Error(err))
			continue
		}

		if err := repo.MarkAlertNotified(ctx, a.ID); err != nil {
			// Уведомление уже ушло; флаг останется снятым и письмо может
			// уйти повторно. Доставка at-least-once.
			logger.Error("mark alert notified", zap.Int64("alertID", a.ID), zap.Error(err))
		}
	}
}
