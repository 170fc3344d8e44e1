package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the heatmanager-data (HTTP API) configuration, loaded
// from environment variables with development defaults.
type Config struct {
	HTTP struct {
		Addr string
	}
	Database DatabaseConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	ThingsBoard  ThingsBoardConfig
	StructureLog string // append-only synchronization log file
}

// DatabaseConfig is the PostgreSQL connection configuration. The same
// database carries customer_settings and the ThingsBoard reporting
// tables (ts_kv, ts_kv_dictionary).
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// ThingsBoardConfig addresses the IoT platform REST API.
type ThingsBoardConfig struct {
	URL string
	// Token is the fallback bearer token for backend-flagged calls when
	// no per-customer token is stored in customer_settings.
	Token string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "heatmanager")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.ThingsBoard.URL = getEnv("THINGSBOARD_URL", "https://thingsboard.heatmanager.de")
	cfg.ThingsBoard.Token = getEnv("THINGSBOARD_TOKEN", "")

	cfg.StructureLog = getEnv("STRUCTURE_LOG_FILE", "logs/structure-creation.log")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
