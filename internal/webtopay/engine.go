// Package webtopay implements the Paysera WebToPay wire protocol: request
// serialization, request signing and callback verification.
package webtopay

import (
	"crypto"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

const (
	// Version is the protocol version sent with every request.
	Version = "1.6"
	// DefaultPayURL is the gateway endpoint payment redirects are sent to.
	DefaultPayURL = "https://bank.paysera.com/pay/"
)

var (
	// ErrMissingParameter is returned when a mandatory request or callback field is absent.
	ErrMissingParameter = errors.New("webtopay: missing parameter")
	// ErrInvalidParameter is returned when a request field fails validation.
	ErrInvalidParameter = errors.New("webtopay: invalid parameter")
	// ErrInvalidSignature is returned when a callback signature does not match.
	ErrInvalidSignature = errors.New("webtopay: invalid signature")
	// ErrMalformedData is returned when the callback data blob cannot be decoded.
	ErrMalformedData = errors.New("webtopay: malformed data")
	// ErrProjectMismatch is returned when a callback belongs to another project.
	ErrProjectMismatch = errors.New("webtopay: project id mismatch")
	// ErrUnsupportedAlgorithm is returned when the configured public key cannot be used for ss2.
	ErrUnsupportedAlgorithm = errors.New("webtopay: unsupported signature algorithm")
)

// Credentials identify the merchant project a callback is checked against.
type Credentials struct {
	ProjectID    string
	SignPassword string
}

var requestRules = map[string]interface{}{
	"projectid":   "required,numeric,max=11",
	"orderid":     "required,max=40",
	"accepturl":   "omitempty,url,max=255",
	"cancelurl":   "omitempty,url,max=255",
	"callbackurl": "omitempty,url,max=255",
	"test":        "omitempty,oneof=0 1",
	"amount":      "omitempty,numeric,max=11",
	"currency":    "omitempty,len=3",
}

// Engine signs outbound payment requests and verifies inbound callbacks.
// The zero value is not usable; construct with New.
type Engine struct {
	PayURL    string
	publicKey *rsa.PublicKey
	validate  *validator.Validate
}

// Option customises an Engine.
type Option func(*Engine) error

// WithPayURL overrides the gateway pay endpoint.
func WithPayURL(raw string) Option {
	return func(e *Engine) error {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("webtopay: pay url: %w", err)
		}
		e.PayURL = raw
		return nil
	}
}

// WithPublicKeyPEM enables ss2 verification with the gateway's RSA public key.
func WithPublicKeyPEM(pemBytes []byte) Option {
	return func(e *Engine) error {
		if len(strings.TrimSpace(string(pemBytes))) == 0 {
			return nil
		}
		key, err := parsePublicKey(pemBytes)
		if err != nil {
			return err
		}
		e.publicKey = key
		return nil
	}
}

// WithValidator shares an existing validator instance.
func WithValidator(v *validator.Validate) Option {
	return func(e *Engine) error {
		if v != nil {
			e.validate = v
		}
		return nil
	}
}

// New constructs an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{PayURL: DefaultPayURL}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.validate == nil {
		e.validate = validator.New()
	}
	return e, nil
}

// BuildRequest validates params and returns the signed {data, sign} pair.
// params must carry sign_password; it is used for signing and never serialized.
func (e *Engine) BuildRequest(params map[string]string) (map[string]string, error) {
	password := params["sign_password"]
	if password == "" {
		return nil, fmt.Errorf("%w: sign_password", ErrMissingParameter)
	}
	fields := make(map[string]string, len(params)+1)
	for k, v := range params {
		if k == "sign_password" {
			continue
		}
		fields[k] = v
	}
	if err := e.validateRequest(fields); err != nil {
		return nil, err
	}
	fields["version"] = Version

	data := EncodeData(fields)
	return map[string]string{
		"data": data,
		"sign": sign(data, password),
	}, nil
}

// BuildRedirect signs params and returns the full gateway redirect URL.
func (e *Engine) BuildRedirect(params map[string]string) (string, error) {
	signed, err := e.BuildRequest(params)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("data", signed["data"])
	q.Set("sign", signed["sign"])
	sep := "?"
	if strings.Contains(e.PayURL, "?") {
		sep = "&"
	}
	return e.PayURL + sep + q.Encode(), nil
}

// CheckResponse verifies a callback query and returns its decoded fields.
func (e *Engine) CheckResponse(query map[string]string, creds Credentials) (map[string]string, error) {
	data := query["data"]
	if data == "" {
		return nil, fmt.Errorf("%w: data", ErrMissingParameter)
	}
	ss1, ss2 := query["ss1"], query["ss2"]
	switch {
	case e.publicKey != nil && ss2 != "":
		if err := e.verifySS2(data, ss2); err != nil {
			return nil, err
		}
	case ss1 != "":
		if !e.ValidateSignature(data, ss1, creds.SignPassword) {
			return nil, fmt.Errorf("%w: ss1", ErrInvalidSignature)
		}
	default:
		return nil, fmt.Errorf("%w: ss1", ErrMissingParameter)
	}

	fields, err := DecodeData(data)
	if err != nil {
		return nil, err
	}
	if got := fields["projectid"]; got == "" {
		return nil, fmt.Errorf("%w: projectid", ErrMissingParameter)
	} else if got != strings.TrimSpace(creds.ProjectID) {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrProjectMismatch, creds.ProjectID, got)
	}
	return fields, nil
}

// ValidateSignature reports whether signature is the ss1 signature of data under secret.
func (e *Engine) ValidateSignature(data, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := sign(data, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

func (e *Engine) validateRequest(fields map[string]string) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	for k := range requestRules {
		if _, ok := values[k]; !ok {
			values[k] = ""
		}
	}
	errs := e.validate.ValidateMap(values, requestRules)
	if len(errs) == 0 {
		return nil
	}
	// deterministic error for the same input
	var first string
	for k := range errs {
		if first == "" || k < first {
			first = k
		}
	}
	if fields[first] == "" {
		return fmt.Errorf("%w: %s", ErrMissingParameter, first)
	}
	return fmt.Errorf("%w: %s: %v", ErrInvalidParameter, first, errs[first])
}

func (e *Engine) verifySS2(data, ss2 string) error {
	sig, err := decodeBase64(ss2)
	if err != nil {
		return fmt.Errorf("%w: ss2: %v", ErrMalformedData, err)
	}
	digest := sha1.Sum([]byte(data))
	if err := rsa.VerifyPKCS1v15(e.publicKey, crypto.SHA1, digest[:], sig); err != nil {
		return fmt.Errorf("%w: ss2", ErrInvalidSignature)
	}
	return nil
}

func sign(data, password string) string {
	sum := md5.Sum([]byte(data + password))
	return hex.EncodeToString(sum[:])
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrUnsupportedAlgorithm)
	}
	if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
		if key, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			return key, nil
		}
		return nil, fmt.Errorf("%w: certificate key is not RSA", ErrUnsupportedAlgorithm)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key is not RSA", ErrUnsupportedAlgorithm)
	}
	return key, nil
}
