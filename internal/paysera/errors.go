package paysera

import "errors"

// Kind classifies adapter failures so callers can branch on them.
type Kind int

const (
	// KindConfiguration marks missing or invalid merchant credentials.
	KindConfiguration Kind = iota + 1
	// KindSigning marks a failure to build a signed request.
	KindSigning
	// KindSignatureVerification marks a callback rejected for authenticity or structure.
	KindSignatureVerification
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindSigning:
		return "signing"
	case KindSignatureVerification:
		return "signature_verification"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrConfiguration         = &Error{Kind: KindConfiguration}
	ErrSigning               = &Error{Kind: KindSigning}
	ErrSignatureVerification = &Error{Kind: KindSignatureVerification}
)

// Error is returned by every failing Client operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := "paysera: " + e.Kind.String() + " error"
	if e.Op != "" {
		msg = "paysera: " + e.Op + ": " + e.Kind.String() + " error"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the engine error so errors.Is can reach protocol sentinels.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return 0
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
