package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paysera-adapter/internal/config"
	"github.com/noah-isme/paysera-adapter/internal/paysera"
)

func baseEnv() map[string]string {
	return map[string]string{
		"PAYSERA_PROJECT_ID":    "123",
		"PAYSERA_SIGN_PASSWORD": "s3cr3t",
		"PAYSERA_TEST_MODE":     "true",
		"PAYSERA_PAY_URL":       "",
		"REDIS_URL":             "",
		"CALLBACK_REPLAY_TTL":   "",
		"OBS_LOG_FORMAT":        "",
	}
}

func TestLoadMerchant(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)

	merchant := cfg.Merchant()
	require.Equal(t, "123", merchant.ProjectID)
	require.Equal(t, "s3cr3t", merchant.SignPassword)
	require.True(t, merchant.TestMode)
	require.Equal(t, 24*time.Hour, cfg.CallbackReplayTTL)
	require.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRequiresCredentials(t *testing.T) {
	env := baseEnv()
	env["PAYSERA_PROJECT_ID"] = ""
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "PAYSERA_PROJECT_ID")
	require.ErrorIs(t, err, paysera.ErrConfiguration)

	env = baseEnv()
	env["PAYSERA_SIGN_PASSWORD"] = "  "
	_, err = config.LoadForTests(env)
	require.ErrorContains(t, err, "PAYSERA_SIGN_PASSWORD")
	require.ErrorIs(t, err, paysera.ErrConfiguration)
}

func TestLoadReplayTTLFallback(t *testing.T) {
	env := baseEnv()
	env["CALLBACK_REPLAY_TTL"] = "soon"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, cfg.CallbackReplayTTL)

	env["CALLBACK_REPLAY_TTL"] = "90m"
	cfg, err = config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, cfg.CallbackReplayTTL)
}
