package samlidp

import "github.com/pkg/errors"

// ErrNotFound is returned by Store.Get for a missing key.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary for user records. Values are stored as
// JSON under slash-separated keys.
type Store interface {
	// Get fetches the value at key into value, or returns ErrNotFound.
	Get(key string, value interface{}) error

	// Put stores value at key, replacing any existing value.
	Put(key string, value interface{}) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// List returns the keys under prefix, with the prefix trimmed.
	List(prefix string) ([]string, error)
}
