// Package callback runs the host-side handling of a Paysera callback:
// authenticate, check structure, reject replays, then classify.
package callback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paysera-adapter/internal/obs"
	"github.com/noah-isme/paysera-adapter/internal/paysera"
)

// Ack is the body the gateway expects once a callback has been accepted. Hosts
// should also answer Ack on ErrReplay, since the first delivery was handled.
const Ack = "OK"

var (
	// ErrReplay is returned when the same signed callback was already processed.
	ErrReplay = errors.New("callback: duplicate callback")
	// ErrIncomplete is returned when an authentic callback lacks orderid or status.
	ErrIncomplete = errors.New("callback: missing orderid or status")
)

// Validator is the subset of paysera.Client the processor needs.
type Validator interface {
	ValidateCallback(ctx context.Context, payload paysera.Params) (paysera.Params, error)
}

// Result is the classification of an accepted callback.
type Result struct {
	ID          uuid.UUID
	OrderID     string
	Outcome     paysera.Outcome
	Description string
	Params      paysera.Params
}

// Processor handles callbacks independently of any HTTP framework.
type Processor struct {
	Client    Validator
	Replay    *redis.Client
	ReplayTTL time.Duration
	Logger    zerolog.Logger
	Metrics   *obs.DomainMetrics
}

// Process authenticates query and classifies its status. Status is never read
// from a payload that failed validation.
func (p Processor) Process(ctx context.Context, query url.Values) (Result, error) {
	if p.Client == nil {
		return Result{}, errors.New("callback: processor not configured")
	}
	id := uuid.New()
	log := p.Logger.With().Str("callback_id", id.String()).Logger()

	payload := make(paysera.Params, len(query))
	for k := range query {
		payload[k] = query.Get(k)
	}

	fields, err := p.Client.ValidateCallback(ctx, payload)
	if err != nil {
		p.count("invalid")
		log.Warn().Err(err).Msg("callback_rejected")
		return Result{}, err
	}

	if !paysera.IsStructurallyValid(fields) {
		p.count("incomplete")
		log.Warn().Msg("callback_incomplete")
		return Result{}, ErrIncomplete
	}

	if p.Replay != nil && p.ReplayTTL > 0 {
		ok, err := p.Replay.SetNX(ctx, replayKey(query.Get("data")), id.String(), p.ReplayTTL).Result()
		if err != nil {
			p.count("error")
			return Result{}, fmt.Errorf("callback: replay store: %w", err)
		}
		if !ok {
			p.count("replay")
			log.Warn().Msg("callback_replayed")
			return Result{}, ErrReplay
		}
	}

	res := Result{
		ID:          id,
		OrderID:     fmt.Sprint(fields[paysera.KeyOrderID]),
		Outcome:     paysera.MapStatus(fields),
		Description: paysera.DescribeStatus(fields),
		Params:      fields,
	}
	p.count("accepted")
	log.Info().
		Str("order_id", res.OrderID).
		Str("outcome", string(res.Outcome)).
		Msg("callback_accepted")
	return res, nil
}

func (p Processor) count(result string) {
	p.Metrics.Callback(result)
}

func replayKey(data string) string {
	sum := sha256.Sum256([]byte(data))
	return "paysera:callback:" + hex.EncodeToString(sum[:])
}
