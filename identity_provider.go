package samlbridge

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"net/url"
	"strings"
	"time"
)

// AssertionValidDuration is the validity window stamped onto every issued
// assertion, both on the bearer subject confirmation and on the conditions.
// It is a property of this exchange, not a configuration knob.
const AssertionValidDuration = 300 * time.Second

// IdentityProvider issues signed assertions for users that authenticate
// locally. All methods are pure functions of the request plus the immutable
// configuration, so a single value is safe for concurrent use.
type IdentityProvider struct {
	Key *KeyMaterial

	// EntityID is this IdP's entity identifier, conventionally its
	// metadata URL.
	EntityID string

	// SSOURL is the single sign-on endpoint AuthnRequests must be
	// addressed to. A request's Destination is accepted when it shares
	// this URL's origin.
	SSOURL string

	// ServiceProviderCertificate verifies the signature on incoming
	// AuthnRequests. Requests signed by anyone else are rejected.
	ServiceProviderCertificate *x509.Certificate
}

// Metadata returns the IdP's entity descriptor: SAML 2.0 protocol support,
// one HTTP-POST single sign-on endpoint, and signing plus encryption key
// descriptors that both carry the same certificate.
func (idp *IdentityProvider) Metadata() *EntityDescriptor {
	certData := base64.StdEncoding.EncodeToString(idp.Key.Certificate.Raw)
	return &EntityDescriptor{
		EntityID: idp.EntityID,
		IDPSSODescriptor: &IDPSSODescriptor{
			ProtocolSupportEnumeration: ProtocolNamespace,
			KeyDescriptors: []KeyDescriptor{
				{Use: "signing", KeyInfo: KeyInfo{Certificate: certData}},
				{Use: "encryption", KeyInfo: KeyInfo{Certificate: certData}},
			},
			SingleSignOnServices: []Endpoint{
				{Binding: HTTPPostBinding, Location: idp.SSOURL},
			},
		},
	}
}

// MetadataXML returns the canonical serialization of Metadata. Unchanged
// configuration yields byte-identical output.
func (idp *IdentityProvider) MetadataXML() ([]byte, error) {
	return idp.Metadata().MarshalCanonical()
}

// ValidateAuthnRequest authenticates and validates a base64-encoded
// AuthnRequest. No field of the request is trusted before its signature
// verifies against the service provider's known certificate. Any single
// failed check rejects the request outright; there is no partial trust.
func (idp *IdentityProvider) ValidateAuthnRequest(rawBase64 string) (*AuthnRequest, error) {
	raw, err := base64.StdEncoding.DecodeString(rawBase64)
	if err != nil {
		return nil, rejectf(ErrMalformed, "cannot decode request: %s", err)
	}
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, rejectf(ErrMalformed, "cannot parse request: %s", err)
	}

	validated, err := VerifySignature(doc.Root(), idp.ServiceProviderCertificate)
	if err != nil {
		return nil, rejectf(ErrInvalidSignature, "%s", err)
	}

	validatedDoc := etreeDocument(validated)
	buf, err := validatedDoc.WriteToBytes()
	if err != nil {
		return nil, rejectf(ErrInvalidSignature, "%s", err)
	}
	req := AuthnRequest{}
	if err := xml.Unmarshal(buf, &req); err != nil {
		return nil, rejectf(ErrMalformed, "cannot unmarshal request: %s", err)
	}

	if req.Destination == "" || !strings.HasPrefix(req.Destination, idp.ssoOrigin()) {
		return nil, rejectf(ErrInvalidDestination, "%q", req.Destination)
	}
	if req.Issuer == nil || req.Issuer.Value == "" {
		return nil, &ValidationError{Kind: ErrMissingIssuer}
	}

	now := TimeNow()
	if c := req.Conditions; c != nil {
		if !c.NotBefore.IsZero() && now.Before(c.NotBefore) {
			return nil, rejectf(ErrNotYetValid, "not before %s", c.NotBefore.Format(timeFormat))
		}
		if !c.NotOnOrAfter.IsZero() && !now.Before(c.NotOnOrAfter) {
			return nil, rejectf(ErrExpired, "not on or after %s", c.NotOnOrAfter.Format(timeFormat))
		}
	}
	return &req, nil
}

// ssoOrigin returns the scheme://host prefix a request's Destination must
// carry to be addressed to this IdP.
func (idp *IdentityProvider) ssoOrigin() string {
	u, err := url.Parse(idp.SSOURL)
	if err != nil || u.Scheme == "" {
		return idp.SSOURL
	}
	return u.Scheme + "://" + u.Host
}

// MakeAssertion builds an assertion for an authenticated identity. The
// identifier is fresh on every call; replaying the output past its window
// fails the conditions check on the consuming side.
func (idp *IdentityProvider) MakeAssertion(identity Identity, requestID, recipient string) *Assertion {
	now := TimeNow()
	return &Assertion{
		ID:           NewID(),
		Version:      "2.0",
		IssueInstant: now,
		Issuer:       &Issuer{Value: idp.EntityID},
		Subject: &Subject{
			NameID: &NameID{Format: EmailAddressNameIDFormat, Value: identity.Email},
			SubjectConfirmation: &SubjectConfirmation{
				Method: BearerConfirmationMethod,
				SubjectConfirmationData: SubjectConfirmationData{
					InResponseTo: requestID,
					NotOnOrAfter: now.Add(AssertionValidDuration),
					Recipient:    recipient,
				},
			},
		},
		Conditions: &Conditions{
			NotBefore:    now,
			NotOnOrAfter: now.Add(AssertionValidDuration),
			AudienceRestriction: &AudienceRestriction{
				Audience: Audience{Value: recipient},
			},
		},
		AuthnStatement: &AuthnStatement{
			AuthnInstant: now,
			AuthnContext: AuthnContext{
				AuthnContextClassRef: &AuthnContextClassRef{Value: PasswordProtectedTransport},
			},
		},
		AttributeStatement: &AttributeStatement{
			Attributes: []Attribute{
				{Name: "email", Values: []AttributeValue{{Value: identity.Email}}},
				{Name: "roles", Values: []AttributeValue{{Value: strings.Join(identity.Roles, ",")}}},
			},
		},
	}
}

// MakeResponse wraps a fresh assertion for identity in a success Response
// tied to the originating request.
func (idp *IdentityProvider) MakeResponse(identity Identity, requestID, recipient string) *Response {
	return &Response{
		ID:           NewID(),
		InResponseTo: requestID,
		Version:      "2.0",
		IssueInstant: TimeNow(),
		Destination:  recipient,
		Issuer:       &Issuer{Value: idp.EntityID},
		Status:       Status{StatusCode: StatusCode{Value: StatusSuccess}},
		Assertion:    idp.MakeAssertion(identity, requestID, recipient),
	}
}

// SignResponse signs the response envelope (not the inner assertion) with
// the IdP key and returns its serialized XML.
func (idp *IdentityProvider) SignResponse(resp *Response) ([]byte, error) {
	signed, err := SignElement(resp.Element(), idp.Key)
	if err != nil {
		return nil, err
	}
	doc := etreeDocument(signed)
	return doc.WriteToBytes()
}
