package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/model"
)

// ProductPricing — строка каталога для фоновых планировщиков, цены в центах.
type ProductPricing struct {
	ID         int64
	Name       string
	PriceCents int64
	BaseCents  int64
}

// PendingAlert — несработавшая подписка вместе с почтой получателя.
type PendingAlert struct {
	ID          int64
	Email       string
	TargetCents int64
}

// ListProductPricing возвращает идентификаторы, названия и цены всех товаров
// для обхода планировщиками.
func (r *PostgresRepository) ListProductPricing(ctx context.Context) ([]ProductPricing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price, base_price FROM products ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select product pricing: %w", err)
	}
	defer rows.Close()

	var res []ProductPricing
	for rows.Next() {
		var p ProductPricing
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.BaseCents); err != nil {
			return nil, fmt.Errorf("scan product pricing: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateProductPrice устанавливает новую текущую цену товара в центах.
func (r *PostgresRepository) UpdateProductPrice(ctx context.Context, productID, priceCents int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE products SET price = $2 WHERE id = $1`,
		productID, priceCents,
	)
	if err != nil {
		return fmt.Errorf("update product price: %w", err)
	}
	return nil
}

// PendingAlertsForProduct возвращает несработавшие подписки на товар
// вместе с почтой владельца.
func (r *PostgresRepository) PendingAlertsForProduct(ctx context.Context, productID int64) ([]PendingAlert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT pa.id, u.email, pa.target_price
		 FROM price_alerts pa
		 JOIN users u ON u.id = pa.user_id
		 WHERE pa.product_id = $1 AND NOT pa.notified
		 ORDER BY pa.id`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending alerts: %w", err)
	}
	defer rows.Close()

	var res []PendingAlert
	for rows.Next() {
		var a PendingAlert
		if err := rows.Scan(&a.ID, &a.Email, &a.TargetCents); err != nil {
			return nil, fmt.Errorf("scan pending alert: %w", err)
		}
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkAlertNotified взводит одноразовый флаг подписки. Условие notified = false
// делает переход одноразовым даже при наложившихся проверках.
func (r *PostgresRepository) MarkAlertNotified(ctx context.Context, alertID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE price_alerts SET notified = true WHERE id = $1 AND NOT notified`,
		alertID,
	)
	if err != nil {
		return fmt.Errorf("mark alert notified: %w", err)
	}
	return nil
}

// CreateAlert создаёт подписку пользователя на цену товара.
func (r *PostgresRepository) CreateAlert(ctx context.Context, userID, productID, targetCents int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO price_alerts (user_id, product_id, target_price) VALUES ($1, $2, $3) RETURNING id`,
		userID, productID, targetCents,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return 0, ErrAlertExists
			case pgerrcode.ForeignKeyViolation:
				return 0, ErrProductNotFound
			}
		}
		return 0, fmt.Errorf("insert price alert: %w", err)
	}
	return id, nil
}

// ListAlertsByUser возвращает подписки пользователя.
func (r *PostgresRepository) ListAlertsByUser(ctx context.Context, userID int64) ([]model.PriceAlert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT pa.id, pa.product_id, p.name, pa.target_price, pa.notified, pa.created_at
		 FROM price_alerts pa
		 JOIN products p ON p.id = pa.product_id
		 WHERE pa.user_id = $1
		 ORDER BY pa.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select price alerts: %w", err)
	}
	defer rows.Close()

	var res []model.PriceAlert
	for rows.Next() {
		var (
			a           model.PriceAlert
			targetCents int64
		)
		if err := rows.Scan(&a.ID, &a.ProductID, &a.ProductName, &targetCents, &a.Notified, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan price alert: %w", err)
		}
		a.TargetPrice = float64(targetCents) / 100
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeleteAlert удаляет подписку, если она принадлежит пользователю.
func (r *PostgresRepository) DeleteAlert(ctx context.Context, userID, alertID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM price_alerts WHERE id = $1 AND user_id = $2`,
		alertID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete price alert: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}
