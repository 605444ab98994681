package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kirinyoku/moodcafe/internal/idgen"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	NodeID    int64
	LogLevel  slog.Level
}

type ServerConfig struct {
	Host       string
	Port       int
	UploadsDir string
}

type StoreConfig struct {
	Backend string
	FileDir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSLMode,
	)
}

type AdminConfig struct {
	APIKey        string
	SeedFile      string
	OrderSyncMode string
}

type RateLimitConfig struct {
	Requests        int64
	Window          time.Duration
	BookingRequests int
	BookingWindow   time.Duration
	IdempotencyTTL  time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 4000)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host:       stringEnv("SERVER_HOST", "localhost"),
		Port:       serverPort,
		UploadsDir: stringEnv("UPLOADS_DIR", "./uploads"),
	}

	storeCfg := StoreConfig{
		Backend: strings.ToLower(stringEnv("STORE_BACKEND", BackendMemory)),
		FileDir: stringEnv("STORE_FILE_DIR", "./data"),
	}
	switch storeCfg.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendPostgres:
	default:
		return nil, fmt.Errorf("%s: invalid STORE_BACKEND: %q", op, storeCfg.Backend)
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresCfg := PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     stringEnv("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  stringEnv("POSTGRES_SSLMODE", "disable"),
	}

	// credentials are only needed when postgres actually backs the store
	if storeCfg.Backend == BackendPostgres {
		if postgresCfg.User == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
		}
		if postgresCfg.Password == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
		}
		if postgresCfg.Name == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
		}
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     stringEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	adminCfg := AdminConfig{
		APIKey:        os.Getenv("ADMIN_API_KEY"),
		SeedFile:      os.Getenv("ADMIN_SEED_FILE"),
		OrderSyncMode: strings.ToLower(stringEnv("ORDER_SYNC_MODE", "merge")),
	}
	if adminCfg.OrderSyncMode != "merge" && adminCfg.OrderSyncMode != "replace" {
		return nil, fmt.Errorf("%s: invalid ORDER_SYNC_MODE: %q", op, adminCfg.OrderSyncMode)
	}

	requests, err := intEnv("RATE_LIMIT_REQUESTS", 200)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	window, err := durationEnv("RATE_LIMIT_WINDOW", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	bookingRequests, err := intEnv("BOOKING_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	bookingWindow, err := durationEnv("BOOKING_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	idemTTL, err := durationEnv("IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	nodeID, err := intEnv("NODE_ID", 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if nodeID < 0 || nodeID > idgen.MaxServerNode {
		return nil, fmt.Errorf("%s: invalid NODE_ID: %d not in [0, %d]", op, nodeID, idgen.MaxServerNode)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(stringEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%s: invalid LOG_LEVEL: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Store:    storeCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Admin:    adminCfg,
		RateLimit: RateLimitConfig{
			Requests:        int64(requests),
			Window:          window,
			BookingRequests: bookingRequests,
			BookingWindow:   bookingWindow,
			IdempotencyTTL:  idemTTL,
		},
		NodeID:   int64(nodeID),
		LogLevel: logLevel,
	}, nil
}

func stringEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return v, nil
}
