package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, loaded from the environment.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string
	SeedPath string

	CurrencyLabel string

	// Deposit slip header defaults.
	DepositBankName      string
	DepositAccountHolder string
	DepositAccountNumber string

	AutoMarkExported  bool
	DashboardCacheTTL time.Duration
	RateLimitRPS      int
}

// Load reads a .env file when present and then the OS environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		DBPath:   getEnv("DB_PATH", "chequepro.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		SeedPath: getEnv("SEED_PATH", "testdata/cheques.json"),

		CurrencyLabel: getEnv("CURRENCY_LABEL", "LKR"),

		DepositBankName:      getEnv("DEPOSIT_BANK_NAME", "YOUR BANK NAME"),
		DepositAccountHolder: getEnv("DEPOSIT_ACCOUNT_HOLDER", ""),
		DepositAccountNumber: getEnv("DEPOSIT_ACCOUNT_NUMBER", ""),

		AutoMarkExported:  getEnvAsBool("AUTO_MARK_EXPORTED", true),
		DashboardCacheTTL: getEnvAsDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
		RateLimitRPS:      getEnvAsInt("RATE_LIMIT_RPS", 10),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid integer for %s (%q), using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid bool for %s (%q), using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid duration for %s (%q), using %s", key, v, fallback)
		return fallback
	}
	return d
}
