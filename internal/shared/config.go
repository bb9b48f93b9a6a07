package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	LogLevel     string
	HTTPAddr     string
	MetricsAddr  string
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	BaseURL      string // public Indico URL used in exported links
	ListsBase    string
	ListsKey     string
	DirBase      string
	DirKey       string
	APIRate      int
	SyncProvider string
	SyncInterval time.Duration
	SyncWorkers  int
	CacheTTL     time.Duration
}

// Load reads the environment, seeded from a .env file when one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env not loaded")
	}
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	dur := func(k string, def time.Duration) time.Duration {
		if v := os.Getenv(k); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				return d
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		LogLevel:     env("LOG_LEVEL", "info"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/jacow?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		BaseURL:      env("INDICO_BASE_URL", "https://indico.jacow.org"),
		ListsBase:    env("MAILING_LIST_BASE_URL", "https://lists.jacow.org/api"),
		ListsKey:     env("MAILING_LIST_API_KEY", ""),
		DirBase:      env("DIRECTORY_BASE_URL", "https://www.jacow.org/api"),
		DirKey:       env("DIRECTORY_API_KEY", ""),
		APIRate:      atoi("API_RPS", 5),
		SyncProvider: env("SYNC_PROVIDER", "jacow"),
		SyncInterval: dur("SYNC_INTERVAL", time.Hour),
		SyncWorkers:  atoi("SYNC_WORKERS", 8),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.ListsKey == "" {
		log.Warn().Msg("MAILING_LIST_API_KEY is empty")
	}
	if c.DirKey == "" {
		log.Warn().Msg("DIRECTORY_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
