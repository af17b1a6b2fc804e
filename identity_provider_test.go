package samlbridge

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSPKeyMaterial(t *testing.T) *KeyMaterial {
	t.Helper()
	km, err := NewKeyMaterial(testSPCertificate, testSPPrivateKey)
	require.NoError(t, err)
	return km
}

// signedRequest signs req with key and returns it base64-encoded, the way
// it arrives in a SAMLRequest form field.
func signedRequest(t *testing.T, req *AuthnRequest, key *KeyMaterial) string {
	t.Helper()
	signed, err := SignElement(req.Element(), key)
	require.NoError(t, err)
	buf, err := etreeDocument(signed).WriteToBytes()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(buf)
}

func validRequest() *AuthnRequest {
	return &AuthnRequest{
		ID:                          NewID(),
		Version:                     "2.0",
		IssueInstant:                TimeNow(),
		Destination:                 "http://localhost:8081/saml/sso",
		AssertionConsumerServiceURL: "http://localhost:8080/api/auth/saml/login",
		ProtocolBinding:             HTTPPostBinding,
		Issuer:                      &Issuer{Value: "http://localhost:8080"},
	}
}

func TestValidateAuthnRequest(t *testing.T) {
	idp := testIdentityProvider(t)
	spKey := testSPKeyMaterial(t)

	req := validRequest()
	req.ID = "_abc123"
	got, err := idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	require.NoError(t, err)
	assert.Equal(t, "_abc123", got.ID)
	assert.Equal(t, "http://localhost:8080", got.Issuer.Value)
	assert.Equal(t, "http://localhost:8080/api/auth/saml/login", got.AssertionConsumerServiceURL)
}

func TestValidateAuthnRequestRejectsGarbage(t *testing.T) {
	idp := testIdentityProvider(t)

	_, err := idp.ValidateAuthnRequest("!!! not base64 !!!")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = idp.ValidateAuthnRequest(base64.StdEncoding.EncodeToString([]byte("<unclosed")))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestValidateAuthnRequestRejectsUnsigned(t *testing.T) {
	idp := testIdentityProvider(t)

	buf, err := etreeDocument(validRequest().Element()).WriteToBytes()
	require.NoError(t, err)
	_, err = idp.ValidateAuthnRequest(base64.StdEncoding.EncodeToString(buf))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateAuthnRequestRejectsWrongSigner(t *testing.T) {
	idp := testIdentityProvider(t)

	// Signed with the IdP's own key rather than the SP's.
	_, err := idp.ValidateAuthnRequest(signedRequest(t, validRequest(), idp.Key))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateAuthnRequestRejectsTampering(t *testing.T) {
	idp := testIdentityProvider(t)
	spKey := testSPKeyMaterial(t)

	raw, err := base64.StdEncoding.DecodeString(signedRequest(t, validRequest(), spKey))
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(raw))
	doc.Root().SelectElement("Issuer").SetText("http://evil.example.com")
	tampered, err := doc.WriteToBytes()
	require.NoError(t, err)

	_, err = idp.ValidateAuthnRequest(base64.StdEncoding.EncodeToString(tampered))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateAuthnRequestRejectsForeignDestination(t *testing.T) {
	idp := testIdentityProvider(t)
	spKey := testSPKeyMaterial(t)

	// A correctly signed request addressed to some other IdP must still be
	// refused.
	req := validRequest()
	req.Destination = "http://evil.example.com/saml/sso"
	_, err := idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	assert.ErrorIs(t, err, ErrInvalidDestination)

	req = validRequest()
	req.Destination = ""
	_, err = idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestValidateAuthnRequestAcceptsSameOriginDestination(t *testing.T) {
	idp := testIdentityProvider(t)
	spKey := testSPKeyMaterial(t)

	req := validRequest()
	req.Destination = "http://localhost:8081/saml/sso?binding=post"
	_, err := idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	assert.NoError(t, err)
}

func TestValidateAuthnRequestRejectsMissingIssuer(t *testing.T) {
	idp := testIdentityProvider(t)
	spKey := testSPKeyMaterial(t)

	req := validRequest()
	req.Issuer = nil
	_, err := idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	assert.ErrorIs(t, err, ErrMissingIssuer)
}

func TestValidateAuthnRequestTemporalChecks(t *testing.T) {
	idp := testIdentityProvider(t)
	spKey := testSPKeyMaterial(t)

	defer func(restore func() time.Time) { TimeNow = restore }(TimeNow)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	TimeNow = func() time.Time { return now }

	req := validRequest()
	req.Conditions = &Conditions{NotBefore: now.Add(time.Minute)}
	_, err := idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	assert.ErrorIs(t, err, ErrNotYetValid)

	req = validRequest()
	req.Conditions = &Conditions{NotOnOrAfter: now.Add(-time.Minute)}
	_, err = idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	assert.ErrorIs(t, err, ErrExpired)

	// NotOnOrAfter is exclusive: a request that expires exactly now is
	// already expired.
	req = validRequest()
	req.Conditions = &Conditions{NotOnOrAfter: now}
	_, err = idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	assert.ErrorIs(t, err, ErrExpired)

	req = validRequest()
	req.Conditions = &Conditions{NotBefore: now.Add(-time.Minute), NotOnOrAfter: now.Add(time.Minute)}
	_, err = idp.ValidateAuthnRequest(signedRequest(t, req, spKey))
	assert.NoError(t, err)
}

func TestMakeAssertion(t *testing.T) {
	idp := testIdentityProvider(t)

	defer func(restore func() time.Time) { TimeNow = restore }(TimeNow)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	TimeNow = func() time.Time { return now }

	identity := Identity{Email: "test@example.com", Roles: []string{"USER", "ADMIN"}}
	assertion := idp.MakeAssertion(identity, "_abc123", "http://localhost:8080/api/auth/saml/login")

	assert.True(t, strings.HasPrefix(assertion.ID, "id-"), pretty.Sprint(assertion))
	assert.Equal(t, idp.EntityID, assertion.Issuer.Value)
	assert.Equal(t, EmailAddressNameIDFormat, assertion.Subject.NameID.Format)
	assert.Equal(t, "test@example.com", assertion.Subject.NameID.Value)

	confirmation := assertion.Subject.SubjectConfirmation
	assert.Equal(t, BearerConfirmationMethod, confirmation.Method)
	assert.Equal(t, "_abc123", confirmation.SubjectConfirmationData.InResponseTo)
	assert.Equal(t, "http://localhost:8080/api/auth/saml/login", confirmation.SubjectConfirmationData.Recipient)
	assert.Equal(t, now.Add(AssertionValidDuration), confirmation.SubjectConfirmationData.NotOnOrAfter)

	conditions := assertion.Conditions
	assert.Equal(t, now, conditions.NotBefore)
	assert.Equal(t, AssertionValidDuration, conditions.NotOnOrAfter.Sub(conditions.NotBefore))
	assert.Equal(t, "http://localhost:8080/api/auth/saml/login", conditions.AudienceRestriction.Audience.Value)

	attrs := assertion.AttributeStatement.Attributes
	require.Len(t, attrs, 2)
	assert.Equal(t, "email", attrs[0].Name)
	assert.Equal(t, "test@example.com", attrs[0].Values[0].Value)
	assert.Equal(t, "roles", attrs[1].Name)
	assert.Equal(t, "USER,ADMIN", attrs[1].Values[0].Value)

	// Assertion identifiers are fresh on every call.
	again := idp.MakeAssertion(identity, "_abc123", "http://localhost:8080/api/auth/saml/login")
	assert.NotEqual(t, assertion.ID, again.ID)
}

func TestSignResponse(t *testing.T) {
	idp := testIdentityProvider(t)

	identity := Identity{Email: "test@example.com", Roles: []string{"USER"}}
	resp := idp.MakeResponse(identity, "_abc123", "http://localhost:8080/api/auth/saml/login")
	assert.Equal(t, "_abc123", resp.InResponseTo)
	assert.Equal(t, StatusSuccess, resp.Status.StatusCode.Value)

	buf, err := idp.SignResponse(resp)
	require.NoError(t, err)

	doc, err := ParseDocument(buf)
	require.NoError(t, err)
	_, err = VerifySignature(doc.Root(), idp.Key.Certificate)
	assert.NoError(t, err)

	// The signature envelope covers the whole response.
	tampered := strings.Replace(string(buf), "test@example.com", "root@example.com", 1)
	doc, err = ParseDocument([]byte(tampered))
	require.NoError(t, err)
	_, err = VerifySignature(doc.Root(), idp.Key.Certificate)
	assert.Error(t, err)
}
