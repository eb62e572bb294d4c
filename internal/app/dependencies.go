package app

import (
	"context"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paysera-adapter/internal/callback"
	"github.com/noah-isme/paysera-adapter/internal/config"
	"github.com/noah-isme/paysera-adapter/internal/obs"
	"github.com/noah-isme/paysera-adapter/internal/paysera"
	"github.com/noah-isme/paysera-adapter/internal/webtopay"
)

// Dependencies holds the explicitly constructed adapter graph. One instance is
// built per process (or per test) and passed to consumers.
type Dependencies struct {
	Logger          zerolog.Logger
	Validator       *validator.Validate
	MetricsRegistry *prometheus.Registry
	Metrics         *obs.DomainMetrics
	Engine          *webtopay.Engine
	Client          *paysera.Client
	Redis           *redis.Client
	Callbacks       callback.Processor
}

// Build wires the engine, client and callback processor from cfg. A nil
// registry gets a fresh one.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) (*Dependencies, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := obs.NewDomainMetrics(cfg.MetricsNamespace, reg)

	validate := validator.New()
	engine, err := webtopay.New(
		webtopay.WithPayURL(cfg.PayseraPayURL),
		webtopay.WithPublicKeyPEM([]byte(cfg.PayseraPublicKey)),
		webtopay.WithValidator(validate),
	)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	client, err := paysera.NewClient(cfg.Merchant(), engine,
		paysera.WithRecorder(obs.FailureLog{
			Logger:  logger.With().Str("component", "paysera").Logger(),
			Metrics: metrics,
		}),
		paysera.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Logger:          logger,
		Validator:       validate,
		MetricsRegistry: reg,
		Metrics:         metrics,
		Engine:          engine,
		Client:          client,
	}

	if cfg.RedisURL != "" {
		rdb, err := newRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		deps.Redis = rdb
	}

	deps.Callbacks = callback.Processor{
		Client:    client,
		Replay:    deps.Redis,
		ReplayTTL: cfg.CallbackReplayTTL,
		Logger:    logger.With().Str("component", "callback").Logger(),
		Metrics:   metrics,
	}
	return deps, nil
}

// Close releases external connections.
func (d *Dependencies) Close() error {
	if d == nil || d.Redis == nil {
		return nil
	}
	return d.Redis.Close()
}

func newRedis(ctx context.Context, rawURL string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
