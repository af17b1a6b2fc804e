package samlbridge

import "github.com/pkg/errors"

// Identity is the authenticated local user an assertion is issued for.
type Identity struct {
	Email string
	Roles []string
}

// ErrBadCredentials is returned by a CredentialVerifier when the username or
// password is wrong. It is deliberately indistinct about which.
var ErrBadCredentials = errors.New("invalid username or password")

// CredentialVerifier checks a username and password against a user database.
// It is the boundary to local authentication: the protocol core never sees
// passwords beyond this call.
type CredentialVerifier interface {
	Verify(username, password string) (*Identity, error)
}
