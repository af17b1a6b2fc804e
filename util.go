package samlbridge

import (
	"crypto/rand"
	"time"

	"github.com/dchest/uniuri"
	dsig "github.com/russellhaering/goxmldsig"
)

// TimeNow is a function that returns the current time. The default
// value is time.Now, but it can be replaced for testing.
var TimeNow = func() time.Time { return time.Now().UTC() }

// Clock is assigned to dsig validation and signing contexts if it is
// not nil, otherwise the default clock is used.
var Clock *dsig.Clock

// RandReader is the io.Reader that produces cryptographically random
// bytes when they are needed by the library. The default value is
// rand.Reader, but it can be replaced for testing.
var RandReader = rand.Reader

// NewID returns a fresh identifier for a SAML message or assertion. XML IDs
// must not start with a digit, hence the prefix.
func NewID() string {
	return "id-" + uniuri.NewLen(20)
}

// timeFormat is the canonical serialization of xsd:dateTime used in
// outgoing messages. It is RFC 3339 compatible so encoding/xml can parse
// it back into a time.Time attribute.
const timeFormat = "2006-01-02T15:04:05.999Z07:00"
