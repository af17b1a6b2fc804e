// Package testsaml contains helpers for tests that pick SAML messages out
// of the HTML forms the HTTP-POST binding carries them in.
package testsaml

import (
	"encoding/base64"
	"fmt"
	"html"
	"regexp"
)

// ExtractFormField returns the value of the named hidden input in an HTML
// form, unescaped.
func ExtractFormField(page, name string) (string, error) {
	re := regexp.MustCompile(`name="` + regexp.QuoteMeta(name) + `" value="([^"]*)"`)
	m := re.FindStringSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("no form field %q in page", name)
	}
	return html.UnescapeString(m[1]), nil
}

// ExtractFormAction returns the target URL of the first form in an HTML
// page.
func ExtractFormAction(page string) (string, error) {
	m := regexp.MustCompile(`action="([^"]*)"`).FindStringSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("no form action in page")
	}
	return html.UnescapeString(m[1]), nil
}

// ParsePostRequest returns the decoded AuthnRequest XML carried by the
// SAMLRequest field of an auto-submitting form.
func ParsePostRequest(page string) ([]byte, error) {
	encoded, err := ExtractFormField(page, "SAMLRequest")
	if err != nil {
		return nil, err
	}
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("cannot decode request: %s", err)
	}
	return buf, nil
}

// ParsePostResponse returns the decoded Response XML carried by the
// SAMLResponse field of an auto-submitting form.
func ParsePostResponse(page string) ([]byte, error) {
	encoded, err := ExtractFormField(page, "SAMLResponse")
	if err != nil {
		return nil, err
	}
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("cannot decode response: %s", err)
	}
	return buf, nil
}
