// Package cache реализует Redis-кэш чтения каталога поверх репозитория.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/karthikambaragonda/Capstone-Project-sub000/internal/model"
)

const (
	productKeyFmt  = "product:%d"
	productListKey = "products:all"
	cacheTTL       = 5 * time.Minute
)

// Catalog описывает источник данных каталога, поверх которого работает кэш.
type Catalog interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
}

// ProductCache — сквозной кэш чтения каталога. Любая ошибка Redis не фатальна:
// чтение уходит в репозиторий, запись в кэш пропускается.
type ProductCache struct {
	catalog Catalog
	rdb     *redis.Client
	logger  *zap.Logger
}

// Connect создаёт клиент Redis и проверяет соединение.
func Connect(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

// NewProductCache создаёт кэш каталога поверх переданного источника.
func NewProductCache(catalog Catalog, rdb *redis.Client, logger *zap.Logger) *ProductCache {
	return &ProductCache{
		catalog: catalog,
		rdb:     rdb,
		logger:  logger,
	}
}

// ListProducts возвращает каталог из кэша или из репозитория.
func (c *ProductCache) ListProducts(ctx context.Context) ([]model.Product, error) {
	data, err := c.rdb.Get(ctx, productListKey).Bytes()
	if err == nil {
		var products []model.Product
		if jsonErr := json.Unmarshal(data, &products); jsonErr == nil {
			return products, nil
		}
		c.logger.Warn("unmarshal cached product list, falling back to db", zap.Error(err))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("redis get product list", zap.Error(err))
	}

	products, err := c.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(products); err == nil {
		if err := c.rdb.Set(ctx, productListKey, data, cacheTTL).Err(); err != nil {
			c.logger.Warn("cache product list", zap.Error(err))
		}
	}

	return products, nil
}

// GetProduct возвращает товар из кэша или из репозитория.
func (c *ProductCache) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	key := fmt.Sprintf(productKeyFmt, id)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var p model.Product
		if jsonErr := json.Unmarshal(data, &p); jsonErr == nil {
			return &p, nil
		}
		c.logger.Warn("unmarshal cached product, falling back to db", zap.Int64("productID", id))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("redis get product", zap.Int64("productID", id), zap.Error(err))
	}

	p, err := c.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, data, cacheTTL).Err(); err != nil {
			c.logger.Warn("cache product", zap.Int64("productID", id), zap.Error(err))
		}
	}

	return p, nil
}

// InvalidateProduct сбрасывает кэш товара и списка. Вызывается планировщиком
// цен после пересчёта, чтобы покупатели не видели устаревшую цену дольше тика.
func (c *ProductCache) InvalidateProduct(ctx context.Context, id int64) {
	if err := c.rdb.Del(ctx, fmt.Sprintf(productKeyFmt, id), productListKey).Err(); err != nil {
		c.logger.Warn("invalidate product cache", zap.Int64("productID", id), zap.Error(err))
	}
}
