// Package paysera adapts host payment flows to the Paysera redirect-and-callback
// protocol. The Client is stateless beyond its immutable MerchantConfig and is
// safe for concurrent use.
package paysera

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/paysera-adapter/internal/obs"
	"github.com/noah-isme/paysera-adapter/internal/webtopay"
)

// Operation names reported to the FailureRecorder and metrics.
const (
	OpBuildRedirectURL   = "build_redirect_url"
	OpBuildSignedRequest = "build_signed_request"
	OpValidateCallback   = "validate_callback"
)

// Engine is the signing and protocol collaborator the Client delegates to.
type Engine interface {
	BuildRedirect(params map[string]string) (string, error)
	BuildRequest(params map[string]string) (map[string]string, error)
	CheckResponse(query map[string]string, creds webtopay.Credentials) (map[string]string, error)
	ValidateSignature(data, signature, secret string) bool
}

// FailureRecorder receives one record per failed operation.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, operation string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordFailure(context.Context, string, error) {}

// Client builds signed requests and validates callbacks for one merchant project.
type Client struct {
	cfg      MerchantConfig
	engine   Engine
	recorder FailureRecorder
	metrics  *obs.DomainMetrics
	tracer   trace.Tracer
}

// Option customises a Client.
type Option func(*Client)

// WithRecorder sets the observability sink for failures.
func WithRecorder(r FailureRecorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithMetrics sets the collectors operation outcomes are counted in.
func WithMetrics(m *obs.DomainMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient validates cfg and returns a Client bound to engine.
func NewClient(cfg MerchantConfig, engine Engine, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, newError(KindConfiguration, "config", errors.New("engine is required"))
	}
	c := &Client{
		cfg:      cfg,
		engine:   engine,
		recorder: nopRecorder{},
		tracer:   otel.Tracer("paysera.Client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProjectID returns the configured project identifier.
func (c *Client) ProjectID() string { return c.cfg.ProjectID }

// TestMode reports whether requests are flagged as sandbox payments.
func (c *Client) TestMode() bool { return c.cfg.TestMode }

// BuildRedirectURL merges params with the merchant credentials and returns the
// signed gateway URL. projectid, sign_password and test always come from the
// configuration, overriding caller values.
func (c *Client) BuildRedirectURL(ctx context.Context, params Params) (string, error) {
	ctx, span := c.start(ctx, "PayseraClient.BuildRedirectURL")
	defer span.End()

	fields := params.Strings()
	fields[KeyProjectID] = c.cfg.ProjectID
	fields[KeySignPassword] = c.cfg.SignPassword
	fields[KeyTest] = c.cfg.testFlag()
	span.SetAttributes(attribute.String("paysera.order_id", fields[KeyOrderID]))

	redirect, err := c.engine.BuildRedirect(fields)
	if err != nil {
		return "", c.fail(ctx, span, KindSigning, OpBuildRedirectURL, err)
	}
	c.succeed(OpBuildRedirectURL)
	return redirect, nil
}

// BuildSignedRequest signs params for custom, non-redirect payment requests.
func (c *Client) BuildSignedRequest(ctx context.Context, params Params) (map[string]string, error) {
	ctx, span := c.start(ctx, "PayseraClient.BuildSignedRequest")
	defer span.End()

	fields := params.Strings()
	fields[KeySignPassword] = c.cfg.SignPassword

	signed, err := c.engine.BuildRequest(fields)
	if err != nil {
		return nil, c.fail(ctx, span, KindSigning, OpBuildSignedRequest, err)
	}
	c.succeed(OpBuildSignedRequest)
	return signed, nil
}

// ValidateCallback checks the callback signature and project and returns the
// decoded callback fields.
func (c *Client) ValidateCallback(ctx context.Context, payload Params) (Params, error) {
	ctx, span := c.start(ctx, "PayseraClient.ValidateCallback")
	defer span.End()

	fields, err := c.engine.CheckResponse(payload.Strings(), webtopay.Credentials{
		ProjectID:    c.cfg.ProjectID,
		SignPassword: c.cfg.SignPassword,
	})
	if err != nil {
		return nil, c.fail(ctx, span, KindSignatureVerification, OpValidateCallback, err)
	}
	span.SetAttributes(attribute.String("paysera.order_id", fields[KeyOrderID]))
	c.succeed(OpValidateCallback)
	return FromStrings(fields), nil
}

// ValidateSignature reports whether signature matches data under the
// configured secret. A mismatch is not an error.
func (c *Client) ValidateSignature(data, signature string) bool {
	return c.engine.ValidateSignature(data, signature, c.cfg.SignPassword)
}

// IsStructurallyValid is the Client form of the package-level function.
func (c *Client) IsStructurallyValid(payload Params) bool { return IsStructurallyValid(payload) }

// MapStatus is the Client form of the package-level function.
func (c *Client) MapStatus(payload Params) Outcome { return MapStatus(payload) }

// DescribeStatus is the Client form of the package-level function.
func (c *Client) DescribeStatus(payload Params) string { return DescribeStatus(payload) }

func (c *Client) start(ctx context.Context, name string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := c.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("paysera.project_id", c.cfg.ProjectID),
		attribute.Bool("paysera.test_mode", c.cfg.TestMode),
	)
	return ctx, span
}

func (c *Client) fail(ctx context.Context, span trace.Span, kind Kind, op string, cause error) error {
	err := newError(kind, op, cause)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.metrics.Operation(op, "error")
	c.recorder.RecordFailure(ctx, op, err)
	return err
}

func (c *Client) succeed(op string) {
	c.metrics.Operation(op, "success")
}
