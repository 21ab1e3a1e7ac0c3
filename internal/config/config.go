package config

import (
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort string
	GRPCPort string
	LogLevel string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBMaxOpenConns int

	// RedisAddr enables idempotent order submission when set.
	RedisAddr string

	OrderIDPrefix   string
	DefaultCurrency string
	DefaultTaxRate  decimal.Decimal
}

func Load() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCPort: getEnv("GRPC_PORT", "50051"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBUser:         getEnv("DB_USER", "root"),
		DBPassword:     getEnv("DB_PASSWORD", "root"),
		DBName:         getEnv("DB_NAME", "purchasing"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		OrderIDPrefix:   getEnv("ORDER_ID_PREFIX", "OC"),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "MXN")),
		DefaultTaxRate:  getEnvDecimal("DEFAULT_TAX_RATE", decimal.RequireFromString("0.16")),
	}
}

// MySQLDSN builds the driver DSN. Timestamps are read and written in UTC and
// UPDATE reports matched rather than changed rows.
func (c *Config) MySQLDSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.DBUser
	cfg.Passwd = c.DBPassword
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"time_zone": "'+00:00'"}
	return cfg.FormatDSN()
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			return d
		}
	}
	return fallback
}
