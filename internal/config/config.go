// Package config содержит логику чтения конфигурации сервиса магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса магазина.
type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	DatabaseURI     string        `env:"DATABASE_URI"`
	NotifierAddress string        `env:"NOTIFIER_ADDRESS"`
	RedisAddress    string        `env:"REDIS_ADDRESS"`
	AuthSecret      string        `env:"AUTH_SECRET"`
	PricingInterval time.Duration `env:"PRICING_INTERVAL"`
	AlertInterval   time.Duration `env:"ALERT_INTERVAL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами. Файл .env подхватывается,
// если присутствует рядом с бинарником.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envNotifierAddress := cfg.NotifierAddress
	envRedisAddress := cfg.RedisAddress
	envAuthSecret := cfg.AuthSecret
	envPricingInterval := cfg.PricingInterval
	envAlertInterval := cfg.AlertInterval

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.NotifierAddress, "n", "", "notification gateway address")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for product cache")
	flag.StringVar(&cfg.AuthSecret, "s", "storefront-secret", "secret key for auth cookies")
	flag.DurationVar(&cfg.PricingInterval, "p", 4*time.Minute, "dynamic pricing interval")
	flag.DurationVar(&cfg.AlertInterval, "t", 1*time.Minute, "price alert scan interval")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envNotifierAddress != "" {
		cfg.NotifierAddress = envNotifierAddress
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envPricingInterval > 0 {
		cfg.PricingInterval = envPricingInterval
	}
	if envAlertInterval > 0 {
		cfg.AlertInterval = envAlertInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
