package samlsp

import (
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/quillauth/samlbridge"
)

// SessionTokenLifetime is how long an issued bearer token stays valid.
const SessionTokenLifetime = time.Hour

// ErrInvalidToken is returned for any token that cannot be accepted:
// malformed, wrongly signed, expired, or not a token at all. Callers get no
// finer distinction.
var ErrInvalidToken = errors.New("invalid session token")

// Principal is the identity carried by a verified session token.
type Principal struct {
	Email string
	Roles []string
}

// SessionIssuer mints a bearer token for a validated principal.
type SessionIssuer interface {
	Issue(email string, roles []string) (string, error)
}

// SessionVerifier checks a bearer token and returns the principal it
// carries, or ErrInvalidToken.
type SessionVerifier interface {
	Verify(token string) (*Principal, error)
}

type sessionClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HMAC-signed session tokens. The signing
// key is generated per process, so tokens do not survive a restart.
type TokenIssuer struct {
	key []byte
}

var _ SessionIssuer = (*TokenIssuer)(nil)
var _ SessionVerifier = (*TokenIssuer)(nil)

// NewTokenIssuer constructs a TokenIssuer with a fresh random signing key.
func NewTokenIssuer() (*TokenIssuer, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(samlbridge.RandReader, key); err != nil {
		return nil, errors.Wrap(err, "cannot generate session signing key")
	}
	return &TokenIssuer{key: key}, nil
}

// Issue mints a token naming email as the subject and carrying roles as a
// claim. The token expires after SessionTokenLifetime.
func (ti *TokenIssuer) Issue(email string, roles []string) (string, error) {
	now := samlbridge.TimeNow()
	claims := sessionClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenLifetime)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "cannot sign session token")
	}
	return signed, nil
}

// Verify parses and checks a token issued by this process.
func (ti *TokenIssuer) Verify(tokenString string) (*Principal, error) {
	claims := sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (interface{}, error) { return ti.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(samlbridge.TimeNow),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Principal{Email: claims.Subject, Roles: claims.Roles}, nil
}
