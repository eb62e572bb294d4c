package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/paysera-adapter/internal/paysera"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string

	PayseraProjectID    string
	PayseraSignPassword string
	PayseraTestMode     bool
	PayseraPayURL       string
	PayseraPublicKey    string

	RedisURL          string
	CallbackReplayTTL time.Duration

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	TracingSampling  float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		PayseraProjectID:    strings.TrimSpace(k.String("PAYSERA_PROJECT_ID")),
		PayseraSignPassword: k.String("PAYSERA_SIGN_PASSWORD"),
		PayseraTestMode:     parseBool(k.String("PAYSERA_TEST_MODE")),
		PayseraPayURL:       strings.TrimSpace(k.String("PAYSERA_PAY_URL")),
		PayseraPublicKey:    k.String("PAYSERA_PUBLIC_KEY"),
		RedisURL:            strings.TrimSpace(k.String("REDIS_URL")),
		CallbackReplayTTL:   parseDuration(k.String("CALLBACK_REPLAY_TTL"), "24h"),
		LogFormat:           valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:            valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:    valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "paysera"),
		TracingEnabled:      parseBool(valueOrDefault(k.String("OBS_ENABLE_TRACING"), "false")),
		TracingExporter:     valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:        strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:     parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
	}

	if err := cfg.Merchant().Validate(); err != nil {
		name := "PAYSERA_SIGN_PASSWORD"
		if cfg.PayseraProjectID == "" {
			name = "PAYSERA_PROJECT_ID"
		}
		return nil, fmt.Errorf("%s is required: %w", name, err)
	}

	return cfg, nil
}

// Merchant returns the merchant identity used to construct a paysera.Client.
func (c *Config) Merchant() paysera.MerchantConfig {
	return paysera.MerchantConfig{
		ProjectID:    c.PayseraProjectID,
		SignPassword: c.PayseraSignPassword,
		TestMode:     c.PayseraTestMode,
	}
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
