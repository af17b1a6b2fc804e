package samlsp

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/quillauth/samlbridge"
)

// ServiceProvider validates SAML responses and produces the authentication
// requests that trigger them. All methods are safe for concurrent use.
type ServiceProvider struct {
	EntityID       string
	ACSURL         string
	Key            *samlbridge.KeyMaterial
	IDPSSOURL      string
	IDPCertificate *x509.Certificate

	// Tracker records which request IDs this SP has issued and which have
	// been consumed. Without it every response is rejected: fail closed.
	Tracker *RequestTracker
}

// AssertionAttributes is the principal extracted from a validated assertion.
type AssertionAttributes struct {
	Email string
	Roles []string
}

// MakeAuthnRequest builds a signed AuthnRequest addressed to the IdP's SSO
// endpoint and tracks its ID so the eventual response can be tied back to
// it exactly once. The returned string is the base64 form carried in the
// SAMLRequest field.
func (sp *ServiceProvider) MakeAuthnRequest() (id string, encoded string, err error) {
	req := samlbridge.AuthnRequest{
		ID:                          samlbridge.NewID(),
		Version:                     "2.0",
		IssueInstant:                samlbridge.TimeNow(),
		Destination:                 sp.IDPSSOURL,
		AssertionConsumerServiceURL: sp.ACSURL,
		ProtocolBinding:             samlbridge.HTTPPostBinding,
		Issuer:                      &samlbridge.Issuer{Value: sp.EntityID},
	}

	signed, err := samlbridge.SignElement(req.Element(), sp.Key)
	if err != nil {
		return "", "", err
	}
	doc := etree.NewDocument()
	doc.SetRoot(signed)
	buf, err := doc.WriteToBytes()
	if err != nil {
		return "", "", err
	}

	sp.Tracker.Track(req.ID)
	return req.ID, base64.StdEncoding.EncodeToString(buf), nil
}

// ParseResponse validates a base64-encoded SAMLResponse and extracts the
// asserted principal. The full validation outcome is derived here, not
// delegated: signature against the IdP's known certificate, one-time
// InResponseTo correlation, validity windows, and recipient/destination/
// audience binding. Any failure, including missing configuration, rejects
// the response.
func (sp *ServiceProvider) ParseResponse(rawBase64 string) (*AssertionAttributes, error) {
	if sp.IDPCertificate == nil {
		return nil, &samlbridge.ValidationError{Kind: samlbridge.ErrInvalidSignature,
			Detail: "no IdP certificate configured"}
	}
	if sp.Tracker == nil {
		return nil, &samlbridge.ValidationError{Kind: samlbridge.ErrInvalidSignature,
			Detail: "no request tracker configured"}
	}

	raw, err := base64.StdEncoding.DecodeString(rawBase64)
	if err != nil {
		return nil, rejectf(samlbridge.ErrMalformed, "cannot decode response: %s", err)
	}
	doc, err := samlbridge.ParseDocument(raw)
	if err != nil {
		return nil, rejectf(samlbridge.ErrMalformed, "cannot parse response: %s", err)
	}

	validated, err := samlbridge.VerifySignature(doc.Root(), sp.IDPCertificate)
	if err != nil {
		return nil, rejectf(samlbridge.ErrInvalidSignature, "%s", err)
	}
	validatedDoc := etree.NewDocument()
	validatedDoc.SetRoot(validated)
	buf, err := validatedDoc.WriteToBytes()
	if err != nil {
		return nil, rejectf(samlbridge.ErrMalformed, "%s", err)
	}

	resp := samlbridge.Response{}
	if err := xml.Unmarshal(buf, &resp); err != nil {
		return nil, rejectf(samlbridge.ErrMalformed, "cannot unmarshal response: %s", err)
	}
	return sp.validateResponse(&resp)
}

func (sp *ServiceProvider) validateResponse(resp *samlbridge.Response) (*AssertionAttributes, error) {
	if resp.Status.StatusCode.Value != samlbridge.StatusSuccess {
		return nil, rejectf(samlbridge.ErrMalformed, "response status %q", resp.Status.StatusCode.Value)
	}
	if resp.Destination != "" && resp.Destination != sp.ACSURL {
		return nil, rejectf(samlbridge.ErrInvalidDestination, "%q", resp.Destination)
	}

	// One-time correlation: the response must answer a request this SP
	// issued, and answering it spends the ID. A replayed response fails
	// here even inside its validity window.
	if resp.InResponseTo == "" || !sp.Tracker.Consume(resp.InResponseTo) {
		return nil, rejectf(samlbridge.ErrExpired, "unknown or already consumed request %q", resp.InResponseTo)
	}

	assertion := resp.Assertion
	if assertion == nil {
		return nil, rejectf(samlbridge.ErrMalformed, "response carries no assertion")
	}
	if assertion.ID != "" && !sp.Tracker.ConsumeAssertion(assertion.ID) {
		return nil, rejectf(samlbridge.ErrExpired, "assertion %q already presented", assertion.ID)
	}

	now := samlbridge.TimeNow()
	if c := assertion.Conditions; c != nil {
		if !c.NotBefore.IsZero() && now.Before(c.NotBefore) {
			return nil, &samlbridge.ValidationError{Kind: samlbridge.ErrNotYetValid}
		}
		if !c.NotOnOrAfter.IsZero() && !now.Before(c.NotOnOrAfter) {
			return nil, &samlbridge.ValidationError{Kind: samlbridge.ErrExpired}
		}
		if ar := c.AudienceRestriction; ar != nil && ar.Audience.Value != "" && ar.Audience.Value != sp.EntityID && ar.Audience.Value != sp.ACSURL {
			return nil, rejectf(samlbridge.ErrInvalidDestination, "audience %q", ar.Audience.Value)
		}
	}

	if subj := assertion.Subject; subj != nil && subj.SubjectConfirmation != nil {
		data := subj.SubjectConfirmation.SubjectConfirmationData
		// Bearer confirmations must name the recipient; an assertion that
		// omits it could be presented to any consumer.
		if subj.SubjectConfirmation.Method == samlbridge.BearerConfirmationMethod && data.Recipient == "" {
			return nil, rejectf(samlbridge.ErrMalformed, "bearer confirmation without recipient")
		}
		if data.Recipient != "" && data.Recipient != sp.ACSURL {
			return nil, rejectf(samlbridge.ErrInvalidDestination, "recipient %q", data.Recipient)
		}
		if !data.NotOnOrAfter.IsZero() && !now.Before(data.NotOnOrAfter) {
			return nil, &samlbridge.ValidationError{Kind: samlbridge.ErrExpired}
		}
	}

	attrs := extractAttributes(assertion)
	if attrs.Email == "" {
		return nil, rejectf(samlbridge.ErrMalformed, "assertion carries no email attribute")
	}
	return attrs, nil
}

// extractAttributes pulls email and roles out of the attribute statement.
// Roles arrive as one comma-joined value, but multiple attribute values are
// accepted too.
func extractAttributes(assertion *samlbridge.Assertion) *AssertionAttributes {
	attrs := &AssertionAttributes{}
	if assertion.AttributeStatement == nil {
		return attrs
	}
	for _, attr := range assertion.AttributeStatement.Attributes {
		switch attr.Name {
		case "email":
			if len(attr.Values) > 0 {
				attrs.Email = attr.Values[0].Value
			}
		case "roles":
			for _, v := range attr.Values {
				for _, role := range strings.Split(v.Value, ",") {
					if role = strings.TrimSpace(role); role != "" {
						attrs.Roles = append(attrs.Roles, role)
					}
				}
			}
		}
	}
	if attrs.Email == "" && assertion.Subject != nil && assertion.Subject.NameID != nil {
		attrs.Email = assertion.Subject.NameID.Value
	}
	return attrs
}

func rejectf(kind error, format string, args ...interface{}) error {
	return &samlbridge.ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
