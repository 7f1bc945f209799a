package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server       ServerConfig
	Auth         AuthConfig
	Catalog      CatalogConfig
	Discount     DiscountConfig
	Orders       OrdersConfig
	Events       EventsConfig
	SettingsFile string
	LogLevel     string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	RequestTimeout  time.Duration
}

type AuthConfig struct {
	// APIKeys entries are "key" or "key:cashierId:Cashier Name"
	APIKeys []string
}

type CatalogConfig struct {
	Source          string // memory or redis
	RedisAddr       string
	ItemsChannel    string
	CategoryChannel string
	LoadTimeout     time.Duration
}

type DiscountConfig struct {
	// Sources are local paths or http(s) URLs, gzip allowed
	Sources []string
}

type OrdersConfig struct {
	Store    string // memory or mysql
	MySQLDSN string
	Migrate  bool
}

type EventsConfig struct {
	AMQPURL  string // empty disables publishing
	Exchange string
}

const (
	SourceMemory = "memory"
	SourceRedis  = "redis"
	StoreMemory  = "memory"
	StoreMySQL   = "mysql"
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 75),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			APIKeys: getEnvAsSlice("API_KEYS", []string{"apitest:cashier-1:Front Counter"}),
		},
		Catalog: CatalogConfig{
			Source:          strings.ToLower(getEnv("CATALOG_SOURCE", SourceMemory)),
			RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
			ItemsChannel:    getEnv("CATALOG_ITEMS_CHANNEL", "catalog:items"),
			CategoryChannel: getEnv("CATALOG_CATEGORIES_CHANNEL", "catalog:categories"),
			LoadTimeout:     getEnvAsDuration("CATALOG_LOAD_TIMEOUT", 10*time.Second),
		},
		Discount: DiscountConfig{
			Sources: getEnvAsSlice("DISCOUNT_SOURCES", nil),
		},
		Orders: OrdersConfig{
			Store:    strings.ToLower(getEnv("ORDER_STORE", StoreMemory)),
			MySQLDSN: getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true"),
			Migrate:  getEnvAsBool("MYSQL_MIGRATE", true),
		},
		Events: EventsConfig{
			AMQPURL:  getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "order_exchange"),
		},
		SettingsFile: getEnv("SETTINGS_FILE", "settings.yaml"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	switch c.Catalog.Source {
	case SourceMemory:
	case SourceRedis:
		if c.Catalog.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CATALOG_SOURCE=redis")
		}
	default:
		return fmt.Errorf("invalid catalog source: %s (must be memory or redis)", c.Catalog.Source)
	}

	if c.Catalog.LoadTimeout <= 0 {
		return fmt.Errorf("CATALOG_LOAD_TIMEOUT must be positive")
	}

	switch c.Orders.Store {
	case StoreMemory:
	case StoreMySQL:
		if c.Orders.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required when ORDER_STORE=mysql")
		}
	default:
		return fmt.Errorf("invalid order store: %s (must be memory or mysql)", c.Orders.Store)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
