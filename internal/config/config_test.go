package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate переходит во временный каталог, чтобы .env рабочей копии не влиял на тест
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_PATH", "")
	return dir
}

func TestNewConfig_DefaultValues(t *testing.T) {
	isolate(t)

	cfg, err := NewConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "localhost", cfg.DefaultHost)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, CacheMemory, cfg.CacheDriver)
	assert.Equal(t, EventsNone, cfg.EventDriver)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.LookupTimeout)
	assert.Equal(t, 2*time.Second, cfg.PublishTimeout)
	assert.Equal(t, "analytics-queue", cfg.QueueName)
	assert.Equal(t, 10, cfg.FreePlanLimit)
	assert.Equal(t, 6, cfg.ShortCodeLength)
	assert.Equal(t, 5, cfg.MaxGenerateAttempts)
}

func TestNewConfig_Precedence(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
run_addr: ":7000"
base_url: "https://yaml.example.com"
cache_ttl: 1h
lookup_timeout: 250ms
queue_name: yaml-queue
free_plan_limit: 3
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\nQUEUE_NAME=dotenv-queue\n"), 0o600))
	t.Setenv("BASE_URL", "https://env.example.com")
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("QUEUE_NAME")
	})

	cfg, err := NewConfig([]string{"-c", yamlPath, "-a", "9090", "-b", "https://flag.example.com", "-plan-limit", "7"})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.RunAddr, "flag overrides YAML")
	assert.Equal(t, "https://env.example.com", cfg.BaseURL, "env overrides flag")
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.LookupTimeout)
	assert.Equal(t, 7, cfg.FreePlanLimit)
	assert.Equal(t, "dotenv-queue", cfg.QueueName, ".env overrides YAML")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewConfig_ConfigPathFromEnv(t *testing.T) {
	dir := isolate(t)
	yamlPath := filepath.Join(dir, "linkgate.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("default_host: GO.Example.com\n"), 0o600))
	t.Setenv("CONFIG_PATH", yamlPath)

	cfg, err := NewConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "go.example.com", cfg.DefaultHost)
}

func TestNewConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "Missing config file", args: []string{"-c", "/nonexistent/config.yaml"}},
		{name: "Unknown store", args: []string{"-store", "mongo"}},
		{name: "Postgres without DSN", args: []string{"-store", "postgres"}},
		{name: "Redis cache without URL", args: []string{"-cache", "redis"}},
		{name: "NATS without URL", args: []string{"-events", "nats"}},
		{name: "Bad duration in env", env: map[string]string{"CACHE_TTL": "soon"}},
		{name: "Bad int in env", env: map[string]string{"FREE_PLAN_LIMIT": "many"}},
		{name: "Unknown flag", args: []string{"-zzz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewConfig(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestConfig_AddressValidation(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{"Port without colon", "9090", ":9090"},
		{"Port with colon", ":9090", ":9090"},
		{"Full address", "localhost:9090", "localhost:9090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeAddress(tt.address))
		})
	}
}

func TestConfig_BaseURLValidation(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"URL without protocol", "example.com", "http://example.com"},
		{"URL with http", "http://example.com", "http://example.com"},
		{"URL with https", "https://example.com", "https://example.com"},
		{"URL with subdomain", "api.example.com", "http://api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeBaseURL(tt.url))
		})
	}
}

func TestLookupFlag(t *testing.T) {
	v, ok := lookupFlag([]string{"-a", ":1", "-c", "x.yaml"}, "c")
	assert.True(t, ok)
	assert.Equal(t, "x.yaml", v)

	v, ok = lookupFlag([]string{"--c=y.yaml"}, "c")
	assert.True(t, ok)
	assert.Equal(t, "y.yaml", v)

	_, ok = lookupFlag([]string{"-cache", "redis"}, "c")
	assert.False(t, ok)
}
