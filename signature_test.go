package samlbridge

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignElementPlacesSignatureAfterIssuer(t *testing.T) {
	spKey := testSPKeyMaterial(t)

	signed, err := SignElement(validRequest().Element(), spKey)
	require.NoError(t, err)

	children := signed.ChildElements()
	require.True(t, len(children) >= 2)
	assert.Equal(t, "Issuer", children[0].Tag)
	assert.Equal(t, "Signature", children[1].Tag)

	// Exactly one Signature child: the document carries the constructed
	// signature and nothing else.
	count := 0
	for _, child := range children {
		if child.Tag == "Signature" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	_, err = VerifySignature(signed, spKey.Certificate)
	assert.NoError(t, err)
}

func TestSignElementSurvivesSerialization(t *testing.T) {
	spKey := testSPKeyMaterial(t)

	signed, err := SignElement(validRequest().Element(), spKey)
	require.NoError(t, err)

	buf, err := etreeDocument(signed).WriteToBytes()
	require.NoError(t, err)

	doc, err := ParseDocument(buf)
	require.NoError(t, err)
	_, err = VerifySignature(doc.Root(), spKey.Certificate)
	assert.NoError(t, err)
}

func TestVerifySignatureHonorsClock(t *testing.T) {
	spKey := testSPKeyMaterial(t)
	signed, err := SignElement(validRequest().Element(), spKey)
	require.NoError(t, err)

	defer func() { Clock = nil }()

	// Validation observes the configured clock: past the certificate's
	// expiry the same document no longer verifies.
	Clock = dsig.NewFakeClock(clockwork.NewFakeClockAt(time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC)))
	_, err = VerifySignature(signed, spKey.Certificate)
	assert.Error(t, err)

	Clock = dsig.NewFakeClock(clockwork.NewFakeClockAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	_, err = VerifySignature(signed, spKey.Certificate)
	assert.NoError(t, err)
}

func TestParseDocumentRejectsMangledXML(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"unclosed", "<a><b></a>"},
		{"directive", "<!DOCTYPE foo [<!ENTITY bar \"baz\">]><a>&bar;</a>"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}

func TestNewIDIsUniqueAndPrefixed(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.Equal(t, "id-", id[:3])
		assert.False(t, seen[id])
		seen[id] = true
	}
}
