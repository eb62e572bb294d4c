package callback_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paysera-adapter/internal/callback"
	"github.com/noah-isme/paysera-adapter/internal/obs"
	"github.com/noah-isme/paysera-adapter/internal/paysera"
	"github.com/noah-isme/paysera-adapter/internal/webtopay"
)

func newClient(t *testing.T) *paysera.Client {
	t.Helper()
	engine, err := webtopay.New()
	require.NoError(t, err)
	client, err := paysera.NewClient(paysera.MerchantConfig{ProjectID: "123", SignPassword: "s3cr3t", TestMode: true}, engine)
	require.NoError(t, err)
	return client
}

func signedQuery(fields map[string]string, password string) url.Values {
	data := webtopay.EncodeData(fields)
	sum := md5.Sum([]byte(data + password))
	return url.Values{"data": {data}, "ss1": {hex.EncodeToString(sum[:])}}
}

func TestProcessAcceptsAuthenticCallback(t *testing.T) {
	metrics := obs.NewDomainMetrics("paysera_test", prometheus.NewRegistry())

	p := callback.Processor{Client: newClient(t), Logger: zerolog.Nop(), Metrics: metrics}
	res, err := p.Process(context.Background(), signedQuery(map[string]string{
		"projectid": "123", "orderid": "ORD1", "status": "2",
	}, "s3cr3t"))
	require.NoError(t, err)
	require.Equal(t, "ORD1", res.OrderID)
	require.Equal(t, paysera.Pending, res.Outcome)
	require.Equal(t, paysera.DescriptionPending, res.Description)
	require.NotEqual(t, uuid.Nil, res.ID)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.CallbackTotal.WithLabelValues("accepted")))
}

type spyValidator struct {
	inner  callback.Validator
	called int
}

func (s *spyValidator) ValidateCallback(ctx context.Context, payload paysera.Params) (paysera.Params, error) {
	s.called++
	return s.inner.ValidateCallback(ctx, payload)
}

func TestProcessRejectsForgedCallbackBeforeMapping(t *testing.T) {
	spy := &spyValidator{inner: newClient(t)}
	p := callback.Processor{Client: spy, Logger: zerolog.Nop()}

	res, err := p.Process(context.Background(), signedQuery(map[string]string{
		"projectid": "123", "orderid": "ORD1", "status": "1",
	}, "forged"))
	require.ErrorIs(t, err, paysera.ErrSignatureVerification)
	require.Equal(t, callback.Result{}, res)
	require.Equal(t, 1, spy.called)
}

func TestProcessIncompleteCallback(t *testing.T) {
	p := callback.Processor{Client: newClient(t), Logger: zerolog.Nop()}
	_, err := p.Process(context.Background(), signedQuery(map[string]string{
		"projectid": "123", "orderid": "ORD1",
	}, "s3cr3t"))
	require.ErrorIs(t, err, callback.ErrIncomplete)
}

func TestProcessRejectsReplay(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	p := callback.Processor{Client: newClient(t), Replay: rdb, ReplayTTL: time.Minute, Logger: zerolog.Nop()}
	query := signedQuery(map[string]string{"projectid": "123", "orderid": "ORD1", "status": "1"}, "s3cr3t")

	res, err := p.Process(context.Background(), query)
	require.NoError(t, err)
	require.Equal(t, paysera.Completed, res.Outcome)

	_, err = p.Process(context.Background(), query)
	require.ErrorIs(t, err, callback.ErrReplay)

	mr.FastForward(2 * time.Minute)
	_, err = p.Process(context.Background(), query)
	require.NoError(t, err)
}

func TestProcessIncompleteCallbackKeepsReplayKeyFree(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	p := callback.Processor{Client: newClient(t), Replay: rdb, ReplayTTL: time.Minute, Logger: zerolog.Nop()}
	query := signedQuery(map[string]string{"projectid": "123", "orderid": "ORD1"}, "s3cr3t")

	for i := 0; i < 2; i++ {
		_, err = p.Process(context.Background(), query)
		require.ErrorIs(t, err, callback.ErrIncomplete)
	}
	require.Empty(t, mr.Keys())
}

func TestProcessReplayStoreDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	p := callback.Processor{Client: newClient(t), Replay: rdb, ReplayTTL: time.Minute, Logger: zerolog.Nop()}
	_, err = p.Process(context.Background(), signedQuery(map[string]string{
		"projectid": "123", "orderid": "ORD1", "status": "1",
	}, "s3cr3t"))
	require.ErrorContains(t, err, "replay store")
}

func TestProcessorNotConfigured(t *testing.T) {
	_, err := callback.Processor{}.Process(context.Background(), url.Values{})
	require.Error(t, err)
}
