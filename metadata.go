package samlbridge

import (
	"encoding/xml"

	"github.com/beevik/etree"
)

// MetadataNamespace is the XML namespace for SAML 2.0 metadata documents.
const MetadataNamespace = "urn:oasis:names:tc:SAML:2.0:metadata"

// EntityDescriptor represents the SAML object of the same name, the root of
// a metadata document.
//
// See http://docs.oasis-open.org/security/saml/v2.0/saml-metadata-2.0-os.pdf
type EntityDescriptor struct {
	XMLName          xml.Name          `xml:"urn:oasis:names:tc:SAML:2.0:metadata EntityDescriptor"`
	EntityID         string            `xml:"entityID,attr"`
	IDPSSODescriptor *IDPSSODescriptor `xml:"IDPSSODescriptor"`
}

// Element returns an etree.Element representing the object in XML form.
func (m *EntityDescriptor) Element() *etree.Element {
	el := etree.NewElement("md:EntityDescriptor")
	el.CreateAttr("xmlns:md", MetadataNamespace)
	el.CreateAttr("entityID", m.EntityID)
	if m.IDPSSODescriptor != nil {
		el.AddChild(m.IDPSSODescriptor.Element())
	}
	return el
}

// MarshalCanonical serializes the metadata document without an XML
// declaration and without indentation, so unchanged configuration yields
// byte-identical output.
func (m *EntityDescriptor) MarshalCanonical() ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(m.Element())
	return doc.WriteToBytes()
}

// IDPSSODescriptor represents the SAML object of the same name.
type IDPSSODescriptor struct {
	ProtocolSupportEnumeration string          `xml:"protocolSupportEnumeration,attr"`
	KeyDescriptors             []KeyDescriptor `xml:"KeyDescriptor"`
	SingleSignOnServices       []Endpoint      `xml:"SingleSignOnService"`
}

// Element returns an etree.Element representing the object in XML form.
func (d *IDPSSODescriptor) Element() *etree.Element {
	el := etree.NewElement("md:IDPSSODescriptor")
	el.CreateAttr("protocolSupportEnumeration", d.ProtocolSupportEnumeration)
	for i := range d.KeyDescriptors {
		el.AddChild(d.KeyDescriptors[i].Element())
	}
	for i := range d.SingleSignOnServices {
		el.AddChild(d.SingleSignOnServices[i].Element("md:SingleSignOnService"))
	}
	return el
}

// KeyDescriptor represents the SAML object of the same name.
type KeyDescriptor struct {
	Use     string  `xml:"use,attr"`
	KeyInfo KeyInfo `xml:"http://www.w3.org/2000/09/xmldsig# KeyInfo"`
}

// Element returns an etree.Element representing the object in XML form.
func (k *KeyDescriptor) Element() *etree.Element {
	el := etree.NewElement("md:KeyDescriptor")
	if k.Use != "" {
		el.CreateAttr("use", k.Use)
	}
	el.AddChild(k.KeyInfo.Element())
	return el
}

// KeyInfo represents the XML-DSig object of the same name, carrying the
// certificate as base64 DER.
type KeyInfo struct {
	Certificate string `xml:"X509Data>X509Certificate"`
}

// Element returns an etree.Element representing the object in XML form.
func (k *KeyInfo) Element() *etree.Element {
	el := etree.NewElement("ds:KeyInfo")
	el.CreateAttr("xmlns:ds", "http://www.w3.org/2000/09/xmldsig#")
	dataEl := el.CreateElement("ds:X509Data")
	certEl := dataEl.CreateElement("ds:X509Certificate")
	certEl.SetText(k.Certificate)
	return el
}

// Endpoint represents a SAML metadata endpoint such as SingleSignOnService.
type Endpoint struct {
	Binding  string `xml:"Binding,attr"`
	Location string `xml:"Location,attr"`
}

// Element returns an etree.Element with the given qualified tag representing
// the endpoint in XML form.
func (e *Endpoint) Element(tag string) *etree.Element {
	el := etree.NewElement(tag)
	el.CreateAttr("Binding", e.Binding)
	el.CreateAttr("Location", e.Location)
	return el
}
