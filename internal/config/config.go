// Package config собирает настройки сервиса из значений по умолчанию, YAML-файла,
// .env, флагов командной строки и переменных окружения.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Драйверы хранилища, кэша и канала событий
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	CacheMemory = "memory"
	CacheRedis  = "redis"

	EventsNone  = "none"
	EventsRedis = "redis"
	EventsNATS  = "nats"
)

// ErrInvalidConfig возвращается при противоречивых или неполных настройках
var ErrInvalidConfig = errors.New("invalid config")

// Config содержит настройки приложения
type Config struct {
	RunAddr             string        `yaml:"run_addr"`
	GRPCAddr            string        `yaml:"grpc_addr"`
	BaseURL             string        `yaml:"base_url"`
	DefaultHost         string        `yaml:"default_host"`
	DatabaseDSN         string        `yaml:"database_dsn"`
	StoreDriver         string        `yaml:"store_driver"`
	RedisURL            string        `yaml:"redis_url"`
	CacheDriver         string        `yaml:"cache_driver"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	LookupTimeout       time.Duration `yaml:"lookup_timeout"`
	PublishTimeout      time.Duration `yaml:"publish_timeout"`
	EventDriver         string        `yaml:"event_driver"`
	NATSURL             string        `yaml:"nats_url"`
	QueueName           string        `yaml:"queue_name"`
	JWTSecret           string        `yaml:"jwt_secret"`
	TrustedSubnet       string        `yaml:"trusted_subnet"`
	FreePlanLimit       int           `yaml:"free_plan_limit"`
	ShortCodeLength     int           `yaml:"short_code_length"`
	MaxGenerateAttempts int           `yaml:"max_generate_attempts"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
	LogLevel            string        `yaml:"log_level"`
}

// Default возвращает настройки по умолчанию
func Default() *Config {
	return &Config{
		RunAddr:             ":8080",
		GRPCAddr:            "",
		BaseURL:             "http://localhost:8080",
		DefaultHost:         "localhost",
		StoreDriver:         StoreMemory,
		CacheDriver:         CacheMemory,
		CacheTTL:            24 * time.Hour,
		LookupTimeout:       500 * time.Millisecond,
		PublishTimeout:      2 * time.Second,
		EventDriver:         EventsNone,
		QueueName:           "analytics-queue",
		JWTSecret:           "default_jwt_secret",
		FreePlanLimit:       10,
		ShortCodeLength:     6,
		MaxGenerateAttempts: 5,
		ShutdownTimeout:     10 * time.Second,
		LogLevel:            "info",
	}
}

// NewConfig создаёт Config. Приоритет: переменные окружения, флаги, .env, YAML-файл, значения по умолчанию.
func NewConfig(args []string) (*Config, error) {
	// .env не перезаписывает уже заданные переменные окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	path := os.Getenv("CONFIG_PATH")
	if p, ok := lookupFlag(args, "c"); ok {
		path = p
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	fs := cfg.flagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// flagSet регистрирует флаги; значения по умолчанию берутся из текущих настроек
func (c *Config) flagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("linkgate", flag.ContinueOnError)
	fs.String("c", "", "path to YAML config file")
	fs.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run HTTP server")
	fs.StringVar(&c.GRPCAddr, "g", c.GRPCAddr, "address and port to run gRPC server, empty disables it")
	fs.StringVar(&c.BaseURL, "b", c.BaseURL, "base URL for shortened links")
	fs.StringVar(&c.DefaultHost, "host", c.DefaultHost, "host served with the default scope")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN for PostgreSQL or SQLite file path")
	fs.StringVar(&c.StoreDriver, "store", c.StoreDriver, "record store: memory, postgres or sqlite")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis URL")
	fs.StringVar(&c.CacheDriver, "cache", c.CacheDriver, "lookup cache: memory or redis")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "lookup cache entry TTL")
	fs.DurationVar(&c.LookupTimeout, "lookup-timeout", c.LookupTimeout, "cache and store lookup timeout")
	fs.DurationVar(&c.PublishTimeout, "publish-timeout", c.PublishTimeout, "click event publish timeout")
	fs.StringVar(&c.EventDriver, "events", c.EventDriver, "event channel: none, redis or nats")
	fs.StringVar(&c.NATSURL, "nats", c.NATSURL, "NATS URL")
	fs.StringVar(&c.QueueName, "queue", c.QueueName, "click event queue name")
	fs.StringVar(&c.JWTSecret, "j", c.JWTSecret, "JWT secret key")
	fs.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "trusted proxy subnet in CIDR notation")
	fs.IntVar(&c.FreePlanLimit, "plan-limit", c.FreePlanLimit, "active URL limit per owner, 0 disables it")
	fs.IntVar(&c.ShortCodeLength, "code-length", c.ShortCodeLength, "generated short code length")
	fs.IntVar(&c.MaxGenerateAttempts, "generate-attempts", c.MaxGenerateAttempts, "short code generation attempts")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown timeout")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level")
	return fs
}

func (c *Config) applyEnv() error {
	stringVars := map[string]*string{
		"SERVER_ADDRESS": &c.RunAddr,
		"GRPC_ADDRESS":   &c.GRPCAddr,
		"BASE_URL":       &c.BaseURL,
		"DEFAULT_HOST":   &c.DefaultHost,
		"DATABASE_DSN":   &c.DatabaseDSN,
		"STORE_DRIVER":   &c.StoreDriver,
		"REDIS_URL":      &c.RedisURL,
		"CACHE_DRIVER":   &c.CacheDriver,
		"EVENT_DRIVER":   &c.EventDriver,
		"NATS_URL":       &c.NATSURL,
		"QUEUE_NAME":     &c.QueueName,
		"JWT_SECRET":     &c.JWTSecret,
		"TRUSTED_SUBNET": &c.TrustedSubnet,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for name, dst := range stringVars {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"CACHE_TTL":        &c.CacheTTL,
		"LOOKUP_TIMEOUT":   &c.LookupTimeout,
		"PUBLISH_TIMEOUT":  &c.PublishTimeout,
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"FREE_PLAN_LIMIT":       &c.FreePlanLimit,
		"SHORT_CODE_LENGTH":     &c.ShortCodeLength,
		"MAX_GENERATE_ATTEMPTS": &c.MaxGenerateAttempts,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
		*dst = n
	}
	return nil
}

// normalize приводит адреса к ожидаемому виду
func (c *Config) normalize() {
	c.RunAddr = normalizeAddress(c.RunAddr)
	if c.GRPCAddr != "" {
		c.GRPCAddr = normalizeAddress(c.GRPCAddr)
	}
	c.BaseURL = normalizeBaseURL(c.BaseURL)
	c.DefaultHost = strings.ToLower(c.DefaultHost)
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	c.CacheDriver = strings.ToLower(c.CacheDriver)
	c.EventDriver = strings.ToLower(c.EventDriver)
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if !lo.Contains([]string{StoreMemory, StorePostgres, StoreSQLite}, c.StoreDriver) {
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if !lo.Contains([]string{CacheMemory, CacheRedis}, c.CacheDriver) {
		return fmt.Errorf("%w: unknown cache driver %q", ErrInvalidConfig, c.CacheDriver)
	}
	if !lo.Contains([]string{EventsNone, EventsRedis, EventsNATS}, c.EventDriver) {
		return fmt.Errorf("%w: unknown event driver %q", ErrInvalidConfig, c.EventDriver)
	}
	if c.StoreDriver != StoreMemory && c.DatabaseDSN == "" {
		return fmt.Errorf("%w: %s store requires database DSN", ErrInvalidConfig, c.StoreDriver)
	}
	if (c.CacheDriver == CacheRedis || c.EventDriver == EventsRedis) && c.RedisURL == "" {
		return fmt.Errorf("%w: redis URL is required", ErrInvalidConfig)
	}
	if c.EventDriver == EventsNATS && c.NATSURL == "" {
		return fmt.Errorf("%w: NATS URL is required", ErrInvalidConfig)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT secret is required", ErrInvalidConfig)
	}
	if c.CacheTTL <= 0 || c.LookupTimeout <= 0 || c.PublishTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}

func normalizeAddress(addr string) string {
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func normalizeBaseURL(url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

// lookupFlag ищет значение флага name в аргументах до разбора остальных флагов
func lookupFlag(args []string, name string) (string, bool) {
	for i, arg := range args {
		trimmed := strings.TrimLeft(arg, "-")
		if trimmed == arg {
			continue
		}
		if trimmed == name && i+1 < len(args) {
			return args[i+1], true
		}
		if v, ok := strings.CutPrefix(trimmed, name+"="); ok {
			return v, true
		}
	}
	return "", false
}
