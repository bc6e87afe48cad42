package repository

import (
	"context"
	"fmt"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/model"
)

// CheckoutParams описывает параметры оформления заказа. Суммы — в центах,
// баллы — в целых единицах (1 списанный балл даёт скидку в 1 единицу валюты).
type CheckoutParams struct {
	ShippingAddress string
	PaymentMethod   string
	PaymentStatus   string
	RedeemPoints    int64
}

// CheckoutResult — результат успешно оформленного заказа в центах.
type CheckoutResult struct {
	OrderID       int64
	PaymentStatus string
	TotalCents    int64
	DiscountCents int64
	FinalCents    int64
	EarnedPoints  int64
}

type checkoutItem struct {
	productID  int64
	name       string
	priceCents int64
	quantity   int64
	stock      int64
}

// Checkout оформляет заказ из корзины пользователя в одной транзакции:
// проверка корзины и остатков, списание баллов, создание заказа со снимками
// позиций, условное уменьшение остатков, очистка корзины и начисление баллов.
// Любая ошибка на любом шаге откатывает все изменения целиком.
func (r *PostgresRepository) Checkout(ctx context.Context, userID int64, params CheckoutParams) (*CheckoutResult, error) {
	var res *CheckoutResult

	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		res, err = r.checkoutTx(ctx, userID, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (r *PostgresRepository) checkoutTx(ctx context.Context, userID int64, params CheckoutParams) (*CheckoutResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT ci.product_id, p.name, p.price, ci.quantity, p.stock_quantity
		 FROM cart_items ci
		 JOIN carts c ON c.id = ci.cart_id
		 JOIN products p ON p.id = ci.product_id
		 WHERE c.user_id = $1
		 ORDER BY ci.product_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}

	var items []checkoutItem
	for rows.Next() {
		var it checkoutItem
		if err := rows.Scan(&it.productID, &it.name, &it.priceCents, &it.quantity, &it.stock); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Предварительная проверка остатков по прочитанным значениям. Гонку двух
	// параллельных покупателей закрывает условный UPDATE ниже.
	var totalCents int64
	for _, it := range items {
		if it.quantity > it.stock {
			return nil, &InsufficientStockError{ProductName: it.name}
		}
		totalCents += it.priceCents * it.quantity
	}

	if params.RedeemPoints > 0 {
		if err := redeemTx(ctx, tx, userID, params.RedeemPoints, "order redemption"); err != nil {
			return nil, err
		}
	}

	discountCents := params.RedeemPoints * 100
	finalCents := totalCents - discountCents
	if finalCents < 0 {
		finalCents = 0
	}

	var orderID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, total_amount, discount_amount, final_amount,
		                     status, payment_method, payment_status, shipping_address)
		 VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7)
		 RETURNING id`,
		userID, totalCents, discountCents, finalCents,
		params.PaymentMethod, params.PaymentStatus, params.ShippingAddress,
	).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)`,
			orderID, it.productID, it.quantity, it.priceCents,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}

		cmdTag, err := tx.Exec(ctx,
			`UPDATE products
			 SET stock_quantity = stock_quantity - $2
			 WHERE id = $1 AND stock_quantity >= $2`,
			it.productID, it.quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return nil, &InsufficientStockError{ProductName: it.name}
		}
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM cart_items
		 WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	// 10% от итоговой суммы, округление вниз до целого балла.
	earnedPoints := finalCents / 1000
	if earnedPoints > 0 {
		if _, err := earnTx(ctx, tx, userID, earnedPoints, model.RewardEarn, fmt.Sprintf("order #%d reward", orderID)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", errAmbiguousCommit, err)
	}

	return &CheckoutResult{
		OrderID:       orderID,
		PaymentStatus: params.PaymentStatus,
		TotalCents:    totalCents,
		DiscountCents: discountCents,
		FinalCents:    finalCents,
		EarnedPoints:  earnedPoints,
	}, nil
}
