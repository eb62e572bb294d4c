package app_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paysera-adapter/internal/app"
	"github.com/noah-isme/paysera-adapter/internal/callback"
	"github.com/noah-isme/paysera-adapter/internal/config"
	"github.com/noah-isme/paysera-adapter/internal/paysera"
	"github.com/noah-isme/paysera-adapter/internal/webtopay"
)

func TestBuildWiresReplayGuard(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{
		PayseraProjectID:    "123",
		PayseraSignPassword: "s3cr3t",
		PayseraTestMode:     true,
		RedisURL:            "redis://" + mr.Addr(),
		CallbackReplayTTL:   time.Minute,
		MetricsNamespace:    "paysera_app_test",
	}

	deps, err := app.Build(context.Background(), cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })
	require.NotNil(t, deps.Redis)
	require.Equal(t, "123", deps.Client.ProjectID())
	require.True(t, deps.Client.TestMode())

	data := webtopay.EncodeData(map[string]string{"projectid": "123", "orderid": "ORD1", "status": "1"})
	query := url.Values{"data": {data}, "ss1": {sign(data, "s3cr3t")}}

	res, err := deps.Callbacks.Process(context.Background(), query)
	require.NoError(t, err)
	require.Equal(t, paysera.Completed, res.Outcome)

	_, err = deps.Callbacks.Process(context.Background(), query)
	require.ErrorIs(t, err, callback.ErrReplay)
}

func TestBuildRejectsMissingCredentials(t *testing.T) {
	cfg := &config.Config{PayseraProjectID: "123", MetricsNamespace: "paysera_app_test"}
	_, err := app.Build(context.Background(), cfg, zerolog.Nop(), nil)
	require.ErrorIs(t, err, paysera.ErrConfiguration)
}

func TestBuildRegistersMetricsPerRegistry(t *testing.T) {
	cfg := &config.Config{
		PayseraProjectID:    "123",
		PayseraSignPassword: "s3cr3t",
		PayseraTestMode:     true,
		MetricsNamespace:    "paysera_app_test",
	}

	for i := 0; i < 2; i++ {
		reg := prometheus.NewRegistry()
		deps, err := app.Build(context.Background(), cfg, zerolog.Nop(), reg)
		require.NoError(t, err)
		require.Same(t, reg, deps.MetricsRegistry)

		_, err = deps.Client.BuildRedirectURL(context.Background(), paysera.Params{"orderid": "ORD1", "amount": 500})
		require.NoError(t, err)

		families, err := reg.Gather()
		require.NoError(t, err)
		require.NotEmpty(t, families, "build %d", i)
		require.Equal(t, 1.0, testutil.ToFloat64(
			deps.Metrics.OperationTotal.WithLabelValues(paysera.OpBuildRedirectURL, "success")), "build %d", i)
	}
}

func sign(data, password string) string {
	sum := md5.Sum([]byte(data + password))
	return hex.EncodeToString(sum[:])
}
