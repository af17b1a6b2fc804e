package samlbridge

import (
	"encoding/xml"
	"time"

	"github.com/beevik/etree"
)

// XML namespaces for the SAML 2.0 schema subset this exchange uses.
const (
	AssertionNamespace = "urn:oasis:names:tc:SAML:2.0:assertion"
	ProtocolNamespace  = "urn:oasis:names:tc:SAML:2.0:protocol"
)

// StatusSuccess is the value of a StatusCode element when authentication
// succeeds.
const StatusSuccess = "urn:oasis:names:tc:SAML:2.0:status:Success"

// EmailAddressNameIDFormat identifies a NameID that carries an email address.
const EmailAddressNameIDFormat = "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress"

// BearerConfirmationMethod is the subject confirmation method where
// possession of the assertion is proof of identity.
const BearerConfirmationMethod = "urn:oasis:names:tc:SAML:2.0:cm:bearer"

// PasswordProtectedTransport is the authentication context class for a
// password presented over a protected channel.
const PasswordProtectedTransport = "urn:oasis:names:tc:SAML:2.0:ac:classes:PasswordProtectedTransport"

// HTTPPostBinding is the URN for the HTTP-POST binding.
const HTTPPostBinding = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"

// AuthnRequest represents the SAML object of the same name, a request from a
// service provider to authenticate a user.
//
// See http://docs.oasis-open.org/security/saml/v2.0/saml-core-2.0-os.pdf
type AuthnRequest struct {
	XMLName                     xml.Name    `xml:"urn:oasis:names:tc:SAML:2.0:protocol AuthnRequest"`
	ID                          string      `xml:",attr"`
	Version                     string      `xml:",attr"`
	IssueInstant                time.Time   `xml:",attr"`
	Destination                 string      `xml:",attr"`
	AssertionConsumerServiceURL string      `xml:",attr"`
	ProtocolBinding             string      `xml:",attr"`
	Issuer                      *Issuer     `xml:"urn:oasis:names:tc:SAML:2.0:assertion Issuer"`
	NameIDPolicy                *NameIDPolicy
	Conditions                  *Conditions
}

// Element returns an etree.Element representing the object in XML form.
func (r *AuthnRequest) Element() *etree.Element {
	el := etree.NewElement("samlp:AuthnRequest")
	el.CreateAttr("xmlns:samlp", ProtocolNamespace)
	el.CreateAttr("xmlns:saml", AssertionNamespace)
	el.CreateAttr("ID", r.ID)
	el.CreateAttr("Version", r.Version)
	el.CreateAttr("IssueInstant", r.IssueInstant.Format(timeFormat))
	if r.Destination != "" {
		el.CreateAttr("Destination", r.Destination)
	}
	if r.AssertionConsumerServiceURL != "" {
		el.CreateAttr("AssertionConsumerServiceURL", r.AssertionConsumerServiceURL)
	}
	if r.ProtocolBinding != "" {
		el.CreateAttr("ProtocolBinding", r.ProtocolBinding)
	}
	if r.Issuer != nil {
		el.AddChild(r.Issuer.Element())
	}
	if r.NameIDPolicy != nil {
		el.AddChild(r.NameIDPolicy.Element())
	}
	if r.Conditions != nil {
		el.AddChild(r.Conditions.Element())
	}
	return el
}

// Issuer represents the SAML object of the same name.
type Issuer struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion Issuer"`
	Format  string   `xml:",attr"`
	Value   string   `xml:",chardata"`
}

// Element returns an etree.Element representing the object in XML form.
func (i *Issuer) Element() *etree.Element {
	el := etree.NewElement("saml:Issuer")
	if i.Format != "" {
		el.CreateAttr("Format", i.Format)
	}
	el.SetText(i.Value)
	return el
}

// NameIDPolicy represents the SAML object of the same name.
type NameIDPolicy struct {
	XMLName     xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol NameIDPolicy"`
	AllowCreate bool     `xml:",attr"`
	Format      string   `xml:",attr"`
}

// Element returns an etree.Element representing the object in XML form.
func (p *NameIDPolicy) Element() *etree.Element {
	el := etree.NewElement("samlp:NameIDPolicy")
	if p.AllowCreate {
		el.CreateAttr("AllowCreate", "true")
	}
	if p.Format != "" {
		el.CreateAttr("Format", p.Format)
	}
	return el
}

// Response represents the SAML object of the same name.
//
// See http://docs.oasis-open.org/security/saml/v2.0/saml-core-2.0-os.pdf
type Response struct {
	XMLName      xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:protocol Response"`
	ID           string     `xml:",attr"`
	InResponseTo string     `xml:",attr"`
	Version      string     `xml:",attr"`
	IssueInstant time.Time  `xml:",attr"`
	Destination  string     `xml:",attr"`
	Issuer       *Issuer    `xml:"urn:oasis:names:tc:SAML:2.0:assertion Issuer"`
	Status       Status     `xml:"urn:oasis:names:tc:SAML:2.0:protocol Status"`
	Assertion    *Assertion `xml:"urn:oasis:names:tc:SAML:2.0:assertion Assertion"`
}

// Element returns an etree.Element representing the object in XML form.
func (r *Response) Element() *etree.Element {
	el := etree.NewElement("samlp:Response")
	el.CreateAttr("xmlns:samlp", ProtocolNamespace)
	el.CreateAttr("xmlns:saml", AssertionNamespace)
	el.CreateAttr("ID", r.ID)
	if r.InResponseTo != "" {
		el.CreateAttr("InResponseTo", r.InResponseTo)
	}
	el.CreateAttr("Version", r.Version)
	el.CreateAttr("IssueInstant", r.IssueInstant.Format(timeFormat))
	if r.Destination != "" {
		el.CreateAttr("Destination", r.Destination)
	}
	if r.Issuer != nil {
		el.AddChild(r.Issuer.Element())
	}
	el.AddChild(r.Status.Element())
	if r.Assertion != nil {
		el.AddChild(r.Assertion.Element())
	}
	return el
}

// Status represents the SAML object of the same name.
type Status struct {
	XMLName    xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:protocol Status"`
	StatusCode StatusCode `xml:"urn:oasis:names:tc:SAML:2.0:protocol StatusCode"`
}

// Element returns an etree.Element representing the object in XML form.
func (s *Status) Element() *etree.Element {
	el := etree.NewElement("samlp:Status")
	el.AddChild(s.StatusCode.Element())
	return el
}

// StatusCode represents the SAML object of the same name.
type StatusCode struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol StatusCode"`
	Value   string   `xml:",attr"`
}

// Element returns an etree.Element representing the object in XML form.
func (s *StatusCode) Element() *etree.Element {
	el := etree.NewElement("samlp:StatusCode")
	el.CreateAttr("Value", s.Value)
	return el
}

// Assertion represents the SAML object of the same name.
//
// See http://docs.oasis-open.org/security/saml/v2.0/saml-core-2.0-os.pdf
type Assertion struct {
	XMLName            xml.Name  `xml:"urn:oasis:names:tc:SAML:2.0:assertion Assertion"`
	ID                 string    `xml:",attr"`
	Version            string    `xml:",attr"`
	IssueInstant       time.Time `xml:",attr"`
	Issuer             *Issuer   `xml:"urn:oasis:names:tc:SAML:2.0:assertion Issuer"`
	Subject            *Subject
	Conditions         *Conditions
	AuthnStatement     *AuthnStatement
	AttributeStatement *AttributeStatement
}

// Element returns an etree.Element representing the object in XML form.
func (a *Assertion) Element() *etree.Element {
	el := etree.NewElement("saml:Assertion")
	el.CreateAttr("xmlns:saml", AssertionNamespace)
	el.CreateAttr("ID", a.ID)
	el.CreateAttr("Version", a.Version)
	el.CreateAttr("IssueInstant", a.IssueInstant.Format(timeFormat))
	if a.Issuer != nil {
		el.AddChild(a.Issuer.Element())
	}
	if a.Subject != nil {
		el.AddChild(a.Subject.Element())
	}
	if a.Conditions != nil {
		el.AddChild(a.Conditions.Element())
	}
	if a.AuthnStatement != nil {
		el.AddChild(a.AuthnStatement.Element())
	}
	if a.AttributeStatement != nil {
		el.AddChild(a.AttributeStatement.Element())
	}
	return el
}

// Subject represents the SAML object of the same name.
type Subject struct {
	XMLName             xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion Subject"`
	NameID              *NameID
	SubjectConfirmation *SubjectConfirmation
}

// Element returns an etree.Element representing the object in XML form.
func (s *Subject) Element() *etree.Element {
	el := etree.NewElement("saml:Subject")
	if s.NameID != nil {
		el.AddChild(s.NameID.Element())
	}
	if s.SubjectConfirmation != nil {
		el.AddChild(s.SubjectConfirmation.Element())
	}
	return el
}

// NameID represents the SAML object of the same name.
type NameID struct {
	Format string `xml:",attr"`
	Value  string `xml:",chardata"`
}

// Element returns an etree.Element representing the object in XML form.
func (n *NameID) Element() *etree.Element {
	el := etree.NewElement("saml:NameID")
	if n.Format != "" {
		el.CreateAttr("Format", n.Format)
	}
	el.SetText(n.Value)
	return el
}

// SubjectConfirmation represents the SAML object of the same name.
type SubjectConfirmation struct {
	Method                  string                  `xml:",attr"`
	SubjectConfirmationData SubjectConfirmationData `xml:"urn:oasis:names:tc:SAML:2.0:assertion SubjectConfirmationData"`
}

// Element returns an etree.Element representing the object in XML form.
func (s *SubjectConfirmation) Element() *etree.Element {
	el := etree.NewElement("saml:SubjectConfirmation")
	el.CreateAttr("Method", s.Method)
	el.AddChild(s.SubjectConfirmationData.Element())
	return el
}

// SubjectConfirmationData represents the SAML object of the same name.
type SubjectConfirmationData struct {
	InResponseTo string    `xml:",attr"`
	NotOnOrAfter time.Time `xml:",attr"`
	Recipient    string    `xml:",attr"`
}

// Element returns an etree.Element representing the object in XML form.
func (s *SubjectConfirmationData) Element() *etree.Element {
	el := etree.NewElement("saml:SubjectConfirmationData")
	if s.InResponseTo != "" {
		el.CreateAttr("InResponseTo", s.InResponseTo)
	}
	if !s.NotOnOrAfter.IsZero() {
		el.CreateAttr("NotOnOrAfter", s.NotOnOrAfter.Format(timeFormat))
	}
	if s.Recipient != "" {
		el.CreateAttr("Recipient", s.Recipient)
	}
	return el
}

// Conditions represents the SAML object of the same name.
type Conditions struct {
	XMLName             xml.Name  `xml:"urn:oasis:names:tc:SAML:2.0:assertion Conditions"`
	NotBefore           time.Time `xml:",attr"`
	NotOnOrAfter        time.Time `xml:",attr"`
	AudienceRestriction *AudienceRestriction
}

// Element returns an etree.Element representing the object in XML form.
func (c *Conditions) Element() *etree.Element {
	el := etree.NewElement("saml:Conditions")
	if !c.NotBefore.IsZero() {
		el.CreateAttr("NotBefore", c.NotBefore.Format(timeFormat))
	}
	if !c.NotOnOrAfter.IsZero() {
		el.CreateAttr("NotOnOrAfter", c.NotOnOrAfter.Format(timeFormat))
	}
	if c.AudienceRestriction != nil {
		el.AddChild(c.AudienceRestriction.Element())
	}
	return el
}

// AudienceRestriction represents the SAML object of the same name.
type AudienceRestriction struct {
	Audience Audience `xml:"urn:oasis:names:tc:SAML:2.0:assertion Audience"`
}

// Element returns an etree.Element representing the object in XML form.
func (a *AudienceRestriction) Element() *etree.Element {
	el := etree.NewElement("saml:AudienceRestriction")
	el.AddChild(a.Audience.Element())
	return el
}

// Audience represents the SAML object of the same name.
type Audience struct {
	Value string `xml:",chardata"`
}

// Element returns an etree.Element representing the object in XML form.
func (a *Audience) Element() *etree.Element {
	el := etree.NewElement("saml:Audience")
	el.SetText(a.Value)
	return el
}

// AuthnStatement represents the SAML object of the same name.
type AuthnStatement struct {
	AuthnInstant time.Time `xml:",attr"`
	SessionIndex string    `xml:",attr"`
	AuthnContext AuthnContext
}

// Element returns an etree.Element representing the object in XML form.
func (a *AuthnStatement) Element() *etree.Element {
	el := etree.NewElement("saml:AuthnStatement")
	el.CreateAttr("AuthnInstant", a.AuthnInstant.Format(timeFormat))
	if a.SessionIndex != "" {
		el.CreateAttr("SessionIndex", a.SessionIndex)
	}
	el.AddChild(a.AuthnContext.Element())
	return el
}

// AuthnContext represents the SAML object of the same name.
type AuthnContext struct {
	AuthnContextClassRef *AuthnContextClassRef
}

// Element returns an etree.Element representing the object in XML form.
func (a *AuthnContext) Element() *etree.Element {
	el := etree.NewElement("saml:AuthnContext")
	if a.AuthnContextClassRef != nil {
		el.AddChild(a.AuthnContextClassRef.Element())
	}
	return el
}

// AuthnContextClassRef represents the SAML object of the same name.
type AuthnContextClassRef struct {
	Value string `xml:",chardata"`
}

// Element returns an etree.Element representing the object in XML form.
func (a *AuthnContextClassRef) Element() *etree.Element {
	el := etree.NewElement("saml:AuthnContextClassRef")
	el.SetText(a.Value)
	return el
}

// AttributeStatement represents the SAML object of the same name.
type AttributeStatement struct {
	Attributes []Attribute `xml:"Attribute"`
}

// Element returns an etree.Element representing the object in XML form.
func (a *AttributeStatement) Element() *etree.Element {
	el := etree.NewElement("saml:AttributeStatement")
	for i := range a.Attributes {
		el.AddChild(a.Attributes[i].Element())
	}
	return el
}

// Attribute represents the SAML object of the same name.
type Attribute struct {
	Name   string           `xml:",attr"`
	Values []AttributeValue `xml:"AttributeValue"`
}

// Element returns an etree.Element representing the object in XML form.
func (a *Attribute) Element() *etree.Element {
	el := etree.NewElement("saml:Attribute")
	el.CreateAttr("Name", a.Name)
	for i := range a.Values {
		el.AddChild(a.Values[i].Element())
	}
	return el
}

// AttributeValue represents the SAML object of the same name.
type AttributeValue struct {
	Value string `xml:",chardata"`
}

// Element returns an etree.Element representing the object in XML form.
func (a *AttributeValue) Element() *etree.Element {
	el := etree.NewElement("saml:AttributeValue")
	el.SetText(a.Value)
	return el
}
