// Package notifier предоставляет клиент шлюза почтовых уведомлений.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// Client инкапсулирует HTTP-взаимодействие со шлюзом уведомлений.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// priceDropRequest — тело запроса к шлюзу при срабатывании подписки на цену.
type priceDropRequest struct {
	Email        string  `json:"email"`
	Product      string  `json:"product"`
	CurrentPrice float64 `json:"current_price"`
	TargetPrice  float64 `json:"target_price"`
}

// NewClient создаёт HTTP-клиент шлюза уведомлений по указанному адресу.
// Транспорт повторяет сетевые сбои сам; логическая попытка в рамках тика
// планировщика остаётся одна.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}
}

// NotifyPriceDrop отправляет уведомление о достижении целевой цены. Любой
// ответ вне 2xx считается ошибкой доставки: флаг подписки остаётся снятым,
// и попытка повторяется на следующем тике.
func (c *Client) NotifyPriceDrop(ctx context.Context, email, productName string, currentCents, targetCents int64) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("notifier client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(priceDropRequest{
		Email:        email,
		Product:      productName,
		CurrentPrice: float64(currentCents) / 100,
		TargetPrice:  float64(targetCents) / 100,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	url := base + "/api/notifications/price-drop"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Один ключ на логическую попытку: транспортные повторы внутри неё
	// шлюз может дедуплицировать.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
