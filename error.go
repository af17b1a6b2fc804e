package samlbridge

import (
	"fmt"

	"github.com/pkg/errors"
)

// Validation failure kinds. Each rejected protocol message carries exactly
// one of these; callers match with errors.Is.
var (
	ErrMalformed          = errors.New("malformed message")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrMissingIssuer      = errors.New("missing or empty issuer")
	ErrNotYetValid        = errors.New("not yet valid")
	ErrExpired            = errors.New("expired")
)

// ValidationError is the terminal rejection of a single protocol message.
// A rejected message produces nothing: no assertion, no response, no token.
type ValidationError struct {
	Kind   error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "saml: " + e.Kind.Error()
	}
	return fmt.Sprintf("saml: %s: %s", e.Kind.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func rejectf(kind error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KeyMaterialError reports configuration key material that could not be
// decoded or parsed. It is fatal at startup.
type KeyMaterialError struct {
	Reason string
	Err    error
}

func (e *KeyMaterialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("key material: %s: %s", e.Reason, e.Err)
	}
	return "key material: " + e.Reason
}

func (e *KeyMaterialError) Unwrap() error {
	return e.Err
}
