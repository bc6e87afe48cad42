package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/model"
)

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, total_amount, discount_amount, final_amount,
		        status, payment_method, payment_status, shipping_address,
		        created_at, shipped_at, delivered_at, cancelled_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o             model.Order
			totalCents    int64
			discountCents int64
			finalCents    int64
			status        string
		)
		err := rows.Scan(&o.ID, &o.UserID, &totalCents, &discountCents, &finalCents,
			&status, &o.PaymentMethod, &o.PaymentStatus, &o.ShippingAddress,
			&o.CreatedAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		o.TotalAmount = float64(totalCents) / 100
		o.DiscountAmount = float64(discountCents) / 100
		o.FinalAmount = float64(finalCents) / 100
		o.Status = model.OrderStatus(status)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// GetOrderItems возвращает позиции заказа, если заказ принадлежит пользователю.
func (r *PostgresRepository) GetOrderItems(ctx context.Context, userID, orderID int64) ([]model.OrderItem, error) {
	var owner int64
	err := r.pool.QueryRow(ctx,
		`SELECT user_id FROM orders WHERE id = $1`, orderID,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order owner: %w", err)
	}
	if owner != userID {
		return nil, ErrOrderNotFound
	}

	rows, err := r.pool.Query(ctx,
		`SELECT oi.product_id, p.name, oi.quantity, oi.price
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.product_id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var (
			it         model.OrderItem
			priceCents int64
		)
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &priceCents); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Price = float64(priceCents) / 100
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// CancelOrder переводит заказ в статус cancelled. Разрешено только владельцу
// и только пока заказ в статусе pending; оба условия проверяет сам UPDATE.
func (r *PostgresRepository) CancelOrder(ctx context.Context, userID, orderID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = 'cancelled', cancelled_at = now()
		 WHERE id = $1 AND user_id = $2 AND status = 'pending'`,
		orderID, userID,
	)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
