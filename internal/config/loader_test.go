package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 8080
  mode: release
provider:
  base_url: "https://sandbox.dataforseo.com"
  login: "user@example.com"
  password: "secret"
  page_size: 50
  max_retry_attempts: 4
  initial_backoff: 100ms
  max_backoff: 2s
  rate_limit_rps: 5
  rate_limit_burst: 5
analysis:
  location_code: 2826
  language_code: "en"
  keyword_limit: 500
  weak_position_margin: 3
storage:
  backend: redis
  ttl: 720h
redis:
  addr: "redis:6379"
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  group_id: "keygap"
log:
  level: debug
  format: console
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://sandbox.dataforseo.com", cfg.Provider.BaseURL)
	assert.Equal(t, 50, cfg.Provider.PageSize)
	assert.Equal(t, 4, cfg.Provider.MaxRetryAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Provider.InitialBackoff)
	assert.Equal(t, 5.0, cfg.Provider.RateLimitRPS)
	assert.Equal(t, 2826, cfg.Analysis.LocationCode)
	assert.Equal(t, 500, cfg.Analysis.KeywordLimit)
	assert.Equal(t, 3, cfg.Analysis.WeakPositionMargin)
	assert.Equal(t, 720*time.Hour, cfg.Storage.TTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaulted.
	assert.Equal(t, DefaultFetchConcurrency, cfg.Analysis.FetchConcurrency)
	assert.Equal(t, DefaultStorageKeyPrefix, cfg.Storage.KeyPrefix)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "invalid_yaml: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, "analysis:\n  keyword_limit: -1\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.keyword_limit")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("KEYGAP_PROVIDER_RATE_LIMIT_RPS", "0.5")
	t.Setenv("KEYGAP_ANALYSIS_WEAK_POSITION_MARGIN", "10")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Provider.RateLimitRPS)
	assert.Equal(t, 10, cfg.Analysis.WeakPositionMargin)
}

func TestLoadFromEnv_DefaultsOnly(t *testing.T) {
	t.Setenv("KEYGAP_PROVIDER_LOGIN", "env-login")
	t.Setenv("KEYGAP_STORAGE_BACKEND", "memory")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-login", cfg.Provider.Login)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, DefaultWeakPositionMargin, cfg.Analysis.WeakPositionMargin)
	assert.Equal(t, DefaultLocationCode, cfg.Analysis.LocationCode)
}

func TestLoadOrEnv(t *testing.T) {
	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeywordLimit, cfg.Analysis.KeywordLimit)

	cfg, err = LoadOrEnv(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Analysis.KeywordLimit)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	var lastRPS atomic.Value
	require.NoError(t, Watch(path, func(c *Config) { lastRPS.Store(c.Provider.RateLimitRPS) }, nil))

	updated := strings.Replace(validConfigYAML, "rate_limit_rps: 5", "rate_limit_rps: 9", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		v, ok := lastRPS.Load().(float64)
		return ok && v == 9
	}, 5*time.Second, 50*time.Millisecond)
}

//Personal.AI order the ending
