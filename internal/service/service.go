// Package service реализует бизнес-логику ядра интернет-магазина.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/model"
	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login, email string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error)
	AddCartItem(ctx context.Context, userID, productID, quantity int64) error
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	Checkout(ctx context.Context, userID int64, params repository.CheckoutParams) (*repository.CheckoutResult, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrderItems(ctx context.Context, userID, orderID int64) ([]model.OrderItem, error)
	CancelOrder(ctx context.Context, userID, orderID int64) error
	Earn(ctx context.Context, userID, points int64, description string) (int64, error)
	Redeem(ctx context.Context, userID, points int64, description string) (int64, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	GetRewardHistory(ctx context.Context, userID int64) ([]model.RewardTransaction, error)
	RecordSpin(ctx context.Context, userID int64, rewardType string, rewardValue int64) error
	CreateAlert(ctx context.Context, userID, productID, targetCents int64) (int64, error)
	ListAlertsByUser(ctx context.Context, userID int64) ([]model.PriceAlert, error)
	DeleteAlert(ctx context.Context, userID, alertID int64) error
}

// Catalog описывает контракт чтения каталога. В продакшене сюда подставляется
// либо репозиторий напрямую, либо Redis-кэш поверх него.
type Catalog interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
}

// Барабан ежедневного розыгрыша: равновероятные исходы, ноль — без приза.
var spinTable = []int64{0, 10, 20, 50}

// Service содержит бизнес-логику ядра магазина.
type Service struct {
	repo    Repository
	catalog Catalog
	draw    func() int64
}

// NewService создаёт новый сервис с указанными репозиторием и каталогом.
func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		draw: func() int64 {
			return spinTable[rand.IntN(len(spinTable))]
		},
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, email, password string) (int64, error) {
	hashed := hashPassword(login, password)
	return s.repo.CreateUser(ctx, login, email, hashed)
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, errors.New("invalid credentials")
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// ListProducts возвращает каталог товаров.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.catalog.ListProducts(ctx)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

// GetCart возвращает корзину пользователя.
func (s *Service) GetCart(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return s.repo.GetCartItems(ctx, userID)
}

// AddToCart добавляет товар в корзину пользователя.
func (s *Service) AddToCart(ctx context.Context, userID, productID, quantity int64) error {
	if quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	return s.repo.AddCartItem(ctx, userID, productID, quantity)
}

// RemoveFromCart удаляет товар из корзины пользователя.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	return s.repo.RemoveCartItem(ctx, userID, productID)
}

// Checkout оформляет заказ из корзины пользователя. Списание баллов, создание
// заказа, уменьшение остатков, очистка корзины и начисление баллов происходят
// в одной транзакции репозитория: либо всё, либо ничего.
func (s *Service) Checkout(ctx context.Context, userID int64, shipping model.ShippingInfo, paymentMethod, paymentStatus string, redeemPoints int64) (*model.CheckoutSummary, error) {
	if redeemPoints < 0 {
		return nil, errors.New("redeem points must not be negative")
	}
	if paymentMethod == "" {
		return nil, errors.New("payment method is required")
	}

	res, err := s.repo.Checkout(ctx, userID, repository.CheckoutParams{
		ShippingAddress: formatShippingAddress(shipping),
		PaymentMethod:   paymentMethod,
		PaymentStatus:   paymentStatus,
		RedeemPoints:    redeemPoints,
	})
	if err != nil {
		return nil, err
	}

	return &model.CheckoutSummary{
		OrderID:       res.OrderID,
		PaymentStatus: res.PaymentStatus,
		EarnedPoints:  res.EarnedPoints,
		Discount:      float64(res.DiscountCents) / 100,
		FinalAmount:   float64(res.FinalCents) / 100,
	}, nil
}

func formatShippingAddress(sh model.ShippingInfo) string {
	parts := []string{sh.Name, sh.Address, sh.City, sh.State + " " + sh.Zip}
	addr := strings.Join(parts, ", ")
	if sh.Email != "" {
		addr = fmt.Sprintf("%s (%s)", addr, sh.Email)
	}
	return addr
}

// GetOrders возвращает заказы пользователя.
func (s *Service) GetOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetOrderItems возвращает позиции заказа пользователя.
func (s *Service) GetOrderItems(ctx context.Context, userID, orderID int64) ([]model.OrderItem, error) {
	return s.repo.GetOrderItems(ctx, userID, orderID)
}

// CancelOrder отменяет заказ пользователя, пока тот в статусе pending.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID int64) error {
	return s.repo.CancelOrder(ctx, userID, orderID)
}

// Earn начисляет баллы пользователю и возвращает обновлённый баланс.
func (s *Service) Earn(ctx context.Context, userID, points int64, description string) (int64, error) {
	if points <= 0 {
		return 0, errors.New("points must be positive")
	}
	return s.repo.Earn(ctx, userID, points, description)
}

// Redeem списывает баллы пользователя и возвращает обновлённый баланс.
func (s *Service) Redeem(ctx context.Context, userID, points int64, description string) (int64, error) {
	if points <= 0 {
		return 0, errors.New("points must be positive")
	}
	return s.repo.Redeem(ctx, userID, points, description)
}

// GetBalance возвращает баланс баллов пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// GetRewardHistory возвращает журнал операций бонусного счёта пользователя.
func (s *Service) GetRewardHistory(ctx context.Context, userID int64) ([]model.RewardTransaction, error) {
	return s.repo.GetRewardHistory(ctx, userID)
}

// DailySpin разыгрывает ежедневный приз. Повторная попытка в тот же
// календарный день завершается repository.ErrAlreadySpun.
func (s *Service) DailySpin(ctx context.Context, userID int64) (*model.SpinResult, error) {
	points := s.draw()

	rewardType := "points"
	if points == 0 {
		rewardType = "none"
	}

	if err := s.repo.RecordSpin(ctx, userID, rewardType, points); err != nil {
		return nil, err
	}

	return &model.SpinResult{Type: rewardType, Value: points}, nil
}

// CreateAlert создаёт подписку пользователя на снижение цены товара.
func (s *Service) CreateAlert(ctx context.Context, userID, productID int64, targetPrice float64) (int64, error) {
	if targetPrice <= 0 {
		return 0, errors.New("target price must be positive")
	}
	// 19.99 в двоичном представлении чуть меньше 1999 центов, усечение
	// срезало бы цент.
	return s.repo.CreateAlert(ctx, userID, productID, int64(math.Round(targetPrice*100)))
}

// GetAlerts возвращает подписки пользователя.
func (s *Service) GetAlerts(ctx context.Context, userID int64) ([]model.PriceAlert, error) {
	return s.repo.ListAlertsByUser(ctx, userID)
}

// DeleteAlert удаляет подписку пользователя.
func (s *Service) DeleteAlert(ctx context.Context, userID, alertID int64) error {
	return s.repo.DeleteAlert(ctx, userID, alertID)
}
