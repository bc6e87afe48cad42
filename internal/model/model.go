// Package model содержит доменные сущности ядра интернет-магазина.
package model

import "time"

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Login        string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Product описывает товар каталога. Текущая цена пересчитывается
// планировщиком динамического ценообразования от базовой цены.
type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	BasePrice     float64 `json:"base_price"`
	StockQuantity int64   `json:"stock_quantity"`
}

// CartItem описывает позицию корзины вместе с актуальными данными товара.
type CartItem struct {
	ProductID     int64   `json:"product_id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Quantity      int64   `json:"quantity"`
	StockQuantity int64   `json:"stock_quantity"`
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// Order описывает заказ пользователя. Суммы — в валюте, уже
// сконвертированные из центов на границе сервиса.
type Order struct {
	ID              int64
	UserID          int64
	TotalAmount     float64
	DiscountAmount  float64
	FinalAmount     float64
	Status          OrderStatus
	PaymentMethod   string
	PaymentStatus   string
	ShippingAddress string
	CreatedAt       time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// OrderItem — неизменяемый снимок позиции заказа с ценой на момент покупки.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

// ShippingInfo содержит адресные данные, передаваемые при оформлении заказа.
type ShippingInfo struct {
	Name    string
	Email   string
	Address string
	City    string
	State   string
	Zip     string
}

// CheckoutSummary — результат успешного оформления заказа.
type CheckoutSummary struct {
	OrderID       int64   `json:"order_id"`
	PaymentStatus string  `json:"payment_status"`
	EarnedPoints  int64   `json:"earned_points"`
	Discount      float64 `json:"discount"`
	FinalAmount   float64 `json:"final_amount"`
}

// RewardTransactionType описывает тип операции бонусного счёта.
type RewardTransactionType string

const (
	RewardEarn   RewardTransactionType = "earn"
	RewardRedeem RewardTransactionType = "redeem"
	RewardBonus  RewardTransactionType = "bonus"
)

// RewardTransaction — запись журнала бонусного счёта. Журнал только
// дописывается: сумма всех записей пользователя равна его балансу.
type RewardTransaction struct {
	UserID      int64
	Points      int64
	Type        RewardTransactionType
	Description string
	CreatedAt   time.Time
}

// SpinResult описывает итог ежедневного розыгрыша.
type SpinResult struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

// PriceAlert описывает подписку пользователя на снижение цены товара.
// Флаг Notified взводится ровно один раз и обратно не сбрасывается.
type PriceAlert struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	TargetPrice float64   `json:"target_price"`
	Notified    bool      `json:"notified"`
	CreatedAt   time.Time `json:"created_at"`
}
