package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/model"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return &PostgresRepository{pool: mock}, mock
}

func expectCartSelect(mock pgxmock.PgxPoolIface, userID int64, rows *pgxmock.Rows) {
	mock.ExpectQuery(`SELECT ci\.product_id, p\.name, p\.price, ci\.quantity, p\.stock_quantity`).
		WithArgs(userID).
		WillReturnRows(rows)
}

func cartRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"product_id", "name", "price", "quantity", "stock_quantity"})
}

// Сценарий из доки: корзина с одним товаром 200.00 × 2, списание 50 баллов.
// Итог 400.00, скидка 50.00, к оплате 350.00, начислено 35 баллов.
func TestCheckout_FullScenario(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := int64(1)

	mock.ExpectBegin()
	expectCartSelect(mock, userID, cartRows().
		AddRow(int64(10), "Gaming Mouse", int64(20000), int64(2), int64(5)))

	mock.ExpectQuery(`UPDATE user_rewards SET points = points -`).
		WithArgs(userID, int64(50)).
		WillReturnRows(pgxmock.NewRows([]string{"points"}).AddRow(int64(0)))
	mock.ExpectExec(`INSERT INTO reward_transactions`).
		WithArgs(userID, int64(-50), "order redemption").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(userID, int64(40000), int64(5000), int64(35000), "card", "paid", "1 Main St").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(int64(7), int64(10), int64(2), int64(20000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE products`).
		WithArgs(int64(10), int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec(`DELETE FROM cart_items`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	mock.ExpectQuery(`INSERT INTO user_rewards`).
		WithArgs(userID, int64(35)).
		WillReturnRows(pgxmock.NewRows([]string{"points"}).AddRow(int64(35)))
	mock.ExpectExec(`INSERT INTO reward_transactions`).
		WithArgs(userID, int64(35), model.RewardEarn, "order #7 reward").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectCommit()

	res, err := repo.Checkout(context.Background(), userID, CheckoutParams{
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
		PaymentStatus:   "paid",
		RedeemPoints:    50,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if res.OrderID != 7 {
		t.Fatalf("order id = %d, want 7", res.OrderID)
	}
	if res.TotalCents != 40000 || res.DiscountCents != 5000 || res.FinalCents != 35000 {
		t.Fatalf("amounts = %d/%d/%d, want 40000/5000/35000",
			res.TotalCents, res.DiscountCents, res.FinalCents)
	}
	if res.EarnedPoints != 35 {
		t.Fatalf("earned points = %d, want 35", res.EarnedPoints)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckout_EmptyCartAborts(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := int64(1)

	mock.ExpectBegin()
	expectCartSelect(mock, userID, cartRows())
	mock.ExpectRollback()

	_, err := repo.Checkout(context.Background(), userID, CheckoutParams{PaymentMethod: "card"})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Гонка двух покупателей: предварительная проверка остатка прошла, но условный
// UPDATE не изменил ни одной строки. Заказ уже вставлен — транзакция обязана
// откатиться целиком.
func TestCheckout_StockRaceRollsBackOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := int64(1)

	mock.ExpectBegin()
	expectCartSelect(mock, userID, cartRows().
		AddRow(int64(10), "Gaming Mouse", int64(20000), int64(1), int64(1)))

	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(userID, int64(20000), int64(0), int64(20000), "card", "pending", "1 Main St").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(int64(8), int64(10), int64(1), int64(20000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE products`).
		WithArgs(int64(10), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := repo.Checkout(context.Background(), userID, CheckoutParams{
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
		PaymentStatus:   "pending",
	})

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if stockErr.ProductName != "Gaming Mouse" {
		t.Fatalf("product name = %q, want Gaming Mouse", stockErr.ProductName)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckout_PreCheckFailsFast(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := int64(1)

	mock.ExpectBegin()
	expectCartSelect(mock, userID, cartRows().
		AddRow(int64(10), "Gaming Mouse", int64(20000), int64(3), int64(1)))
	mock.ExpectRollback()

	_, err := repo.Checkout(context.Background(), userID, CheckoutParams{PaymentMethod: "card"})

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}

	// Ни заказ, ни позиции не вставлялись: все ожидания исчерпаны до отката.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Недостаток баллов обрывает оформление до вставки заказа: условный UPDATE
// баланса не находит строку, и вся транзакция откатывается.
func TestCheckout_RedeemFailureAbortsAll(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := int64(1)

	mock.ExpectBegin()
	expectCartSelect(mock, userID, cartRows().
		AddRow(int64(10), "Gaming Mouse", int64(20000), int64(2), int64(5)))
	mock.ExpectQuery(`UPDATE user_rewards SET points = points -`).
		WithArgs(userID, int64(500)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Checkout(context.Background(), userID, CheckoutParams{
		PaymentMethod: "card",
		RedeemPoints:  500,
	})
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Сбой на фазе Commit выглядит как сетевой обрыв, но заказ мог успеть
// зафиксироваться: повторного прогона транзакции быть не должно.
func TestCheckout_CommitFailureIsNotRetried(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := int64(1)

	mock.ExpectBegin()
	expectCartSelect(mock, userID, cartRows().
		AddRow(int64(10), "Gaming Mouse", int64(20000), int64(1), int64(5)))
	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(userID, int64(20000), int64(0), int64(20000), "card", "pending", "1 Main St").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(int64(9), int64(10), int64(1), int64(20000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE products`).
		WithArgs(int64(10), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM cart_items`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(`INSERT INTO user_rewards`).
		WithArgs(userID, int64(20)).
		WillReturnRows(pgxmock.NewRows([]string{"points"}).AddRow(int64(20)))
	mock.ExpectExec(`INSERT INTO reward_transactions`).
		WithArgs(userID, int64(20), model.RewardEarn, "order #9 reward").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit().WillReturnError(errors.New("write tcp: connection reset by peer"))
	mock.ExpectRollback()

	_, err := repo.Checkout(context.Background(), userID, CheckoutParams{
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
		PaymentStatus:   "pending",
	})
	if !errors.Is(err, errAmbiguousCommit) {
		t.Fatalf("err = %v, want errAmbiguousCommit", err)
	}

	// Единственный Begin в ожиданиях: повтор упал бы на лишнем вызове.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
