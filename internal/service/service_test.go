package service

import (
	"context"
	"errors"
	"testing"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/model"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/repository"
)

type stubRepo struct {
	checkoutParams *repository.CheckoutParams
	checkoutRes    *repository.CheckoutResult
	checkoutErr    error

	earnBalance int64
	earnErr     error

	redeemBalance int64
	redeemErr     error

	spinType  string
	spinValue int64
	spinErr   error

	getUser    *model.User
	getUserErr error

	alertTargetCents int64
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, login, email string, passwordHash []byte) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return nil, nil
}

func (s *stubRepo) AddCartItem(ctx context.Context, userID, productID, quantity int64) error {
	return nil
}

func (s *stubRepo) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	return nil
}

func (s *stubRepo) Checkout(ctx context.Context, userID int64, params repository.CheckoutParams) (*repository.CheckoutResult, error) {
	s.checkoutParams = &params
	return s.checkoutRes, s.checkoutErr
}

func (s *stubRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) GetOrderItems(ctx context.Context, userID, orderID int64) ([]model.OrderItem, error) {
	return nil, nil
}

func (s *stubRepo) CancelOrder(ctx context.Context, userID, orderID int64) error { return nil }

func (s *stubRepo) Earn(ctx context.Context, userID, points int64, description string) (int64, error) {
	return s.earnBalance, s.earnErr
}

func (s *stubRepo) Redeem(ctx context.Context, userID, points int64, description string) (int64, error) {
	return s.redeemBalance, s.redeemErr
}

func (s *stubRepo) GetBalance(ctx context.Context, userID int64) (int64, error) { return 0, nil }

func (s *stubRepo) GetRewardHistory(ctx context.Context, userID int64) ([]model.RewardTransaction, error) {
	return nil, nil
}

func (s *stubRepo) RecordSpin(ctx context.Context, userID int64, rewardType string, rewardValue int64) error {
	s.spinType = rewardType
	s.spinValue = rewardValue
	return s.spinErr
}

func (s *stubRepo) CreateAlert(ctx context.Context, userID, productID, targetCents int64) (int64, error) {
	s.alertTargetCents = targetCents
	return 1, nil
}

func (s *stubRepo) ListAlertsByUser(ctx context.Context, userID int64) ([]model.PriceAlert, error) {
	return nil, nil
}

func (s *stubRepo) DeleteAlert(ctx context.Context, userID, alertID int64) error { return nil }

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user", "pass")
	b := hashPassword("user", "pass")
	c := hashPassword("user", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	hashed := hashPassword("user", "correct")
	repo := &stubRepo{
		getUser: &model.User{
			ID:           1,
			Login:        "user",
			PasswordHash: hashed,
		},
	}

	svc := NewService(repo, nil)

	_, err := svc.AuthenticateUser(context.Background(), "user", "wrong")
	if err == nil {
		t.Fatalf("expected error for invalid credentials")
	}
}

func TestCheckout_Validation(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	_, err := svc.Checkout(context.Background(), 1, model.ShippingInfo{}, "card", "paid", -1)
	if err == nil {
		t.Fatalf("expected error for negative redeem points")
	}

	_, err = svc.Checkout(context.Background(), 1, model.ShippingInfo{}, "", "paid", 0)
	if err == nil {
		t.Fatalf("expected error for empty payment method")
	}
}

func TestCheckout_ConvertsResult(t *testing.T) {
	// Сценарий: корзина на 400.00, списано 50 баллов, итог 350.00, начислено 35.
	repo := &stubRepo{
		checkoutRes: &repository.CheckoutResult{
			OrderID:       7,
			PaymentStatus: "paid",
			TotalCents:    40000,
			DiscountCents: 5000,
			FinalCents:    35000,
			EarnedPoints:  35,
		},
	}
	svc := NewService(repo, nil)

	shipping := model.ShippingInfo{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Address: "1 Main St",
		City:    "Springfield",
		State:   "IL",
		Zip:     "62704",
	}

	sum, err := svc.Checkout(context.Background(), 1, shipping, "card", "paid", 50)
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	if sum.OrderID != 7 {
		t.Fatalf("OrderID = %d, want 7", sum.OrderID)
	}
	if sum.Discount != 50.0 {
		t.Fatalf("Discount = %v, want 50", sum.Discount)
	}
	if sum.FinalAmount != 350.0 {
		t.Fatalf("FinalAmount = %v, want 350", sum.FinalAmount)
	}
	if sum.EarnedPoints != 35 {
		t.Fatalf("EarnedPoints = %d, want 35", sum.EarnedPoints)
	}

	if repo.checkoutParams.RedeemPoints != 50 {
		t.Fatalf("RedeemPoints = %d, want 50", repo.checkoutParams.RedeemPoints)
	}
	wantAddr := "Jane Doe, 1 Main St, Springfield, IL 62704 (jane@example.com)"
	if repo.checkoutParams.ShippingAddress != wantAddr {
		t.Fatalf("ShippingAddress = %q, want %q", repo.checkoutParams.ShippingAddress, wantAddr)
	}
}

func TestCheckout_PropagatesInsufficientPoints(t *testing.T) {
	repo := &stubRepo{checkoutErr: repository.ErrInsufficientPoints}
	svc := NewService(repo, nil)

	_, err := svc.Checkout(context.Background(), 1, model.ShippingInfo{}, "card", "paid", 10)
	if !errors.Is(err, repository.ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestEarnRedeem_Validation(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	if _, err := svc.Earn(context.Background(), 1, 0, "x"); err == nil {
		t.Fatalf("expected error for zero earn")
	}
	if _, err := svc.Redeem(context.Background(), 1, -5, "x"); err == nil {
		t.Fatalf("expected error for negative redeem")
	}
}

func TestRedeem_PropagatesInsufficientPoints(t *testing.T) {
	repo := &stubRepo{redeemErr: repository.ErrInsufficientPoints}
	svc := NewService(repo, nil)

	_, err := svc.Redeem(context.Background(), 1, 100, "manual")
	if !errors.Is(err, repository.ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestDailySpin_WinRecordsPoints(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)
	svc.draw = func() int64 { return 20 }

	res, err := svc.DailySpin(context.Background(), 1)
	if err != nil {
		t.Fatalf("DailySpin error: %v", err)
	}

	if res.Type != "points" || res.Value != 20 {
		t.Fatalf("result = %+v, want points/20", res)
	}
	if repo.spinType != "points" || repo.spinValue != 20 {
		t.Fatalf("recorded spin = %s/%d, want points/20", repo.spinType, repo.spinValue)
	}
}

func TestDailySpin_NoReward(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)
	svc.draw = func() int64 { return 0 }

	res, err := svc.DailySpin(context.Background(), 1)
	if err != nil {
		t.Fatalf("DailySpin error: %v", err)
	}

	if res.Type != "none" || res.Value != 0 {
		t.Fatalf("result = %+v, want none/0", res)
	}
}

func TestDailySpin_PropagatesAlreadySpun(t *testing.T) {
	repo := &stubRepo{spinErr: repository.ErrAlreadySpun}
	svc := NewService(repo, nil)

	_, err := svc.DailySpin(context.Background(), 1)
	if !errors.Is(err, repository.ErrAlreadySpun) {
		t.Fatalf("expected ErrAlreadySpun, got %v", err)
	}
}

func TestDefaultDraw_WithinTable(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	valid := map[int64]bool{0: true, 10: true, 20: true, 50: true}
	for i := 0; i < 200; i++ {
		if v := svc.draw(); !valid[v] {
			t.Fatalf("draw returned %d, not in reward table", v)
		}
	}
}

func TestCreateAlert_Validation(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	if _, err := svc.CreateAlert(context.Background(), 1, 2, 0); err == nil {
		t.Fatalf("expected error for non-positive target price")
	}
}

func TestCreateAlert_RoundsTargetToCents(t *testing.T) {
	tests := []struct {
		price float64
		cents int64
	}{
		{19.99, 1999},
		{0.01, 1},
		{100, 10000},
		{2.5, 250},
	}

	for _, tt := range tests {
		repo := &stubRepo{}
		svc := NewService(repo, nil)

		if _, err := svc.CreateAlert(context.Background(), 1, 2, tt.price); err != nil {
			t.Fatalf("CreateAlert(%v): %v", tt.price, err)
		}
		if repo.alertTargetCents != tt.cents {
			t.Fatalf("target %v converted to %d cents, want %d", tt.price, repo.alertTargetCents, tt.cents)
		}
	}
}
