// Package samlsp implements the service-provider half of the exchange: it
// issues signed authentication requests, re-validates posted responses, and
// bridges the asserted identity into a short-lived bearer token.
package samlsp

import (
	"crypto/x509"
	"encoding/xml"
	"net/http"

	"github.com/pkg/errors"

	"github.com/quillauth/samlbridge"
)

// Options holds the configuration needed to stand up the service-provider
// middleware.
type Options struct {
	// EntityID identifies this SP to the IdP; it appears as the Issuer of
	// outgoing requests and must match the assertion audience.
	EntityID string

	// ACSURL is the assertion consumer endpoint responses are posted to.
	ACSURL string

	// Key signs outgoing AuthnRequests.
	Key *samlbridge.KeyMaterial

	// IDPSSOURL is where authentication requests are sent.
	IDPSSOURL string

	// IDPCertificate verifies signatures on incoming responses. Either it
	// or IDPMetadataURL must be set.
	IDPCertificate *x509.Certificate

	// IDPMetadataURL, when set, is fetched at construction time and
	// supplies IDPSSOURL and IDPCertificate.
	IDPMetadataURL string
}

// New constructs a Middleware from options, fetching IdP metadata when a
// metadata URL is configured.
func New(opts Options) (*Middleware, error) {
	sp := &ServiceProvider{
		EntityID:       opts.EntityID,
		ACSURL:         opts.ACSURL,
		Key:            opts.Key,
		IDPSSOURL:      opts.IDPSSOURL,
		IDPCertificate: opts.IDPCertificate,
		Tracker:        NewRequestTracker(),
	}

	if opts.IDPMetadataURL != "" {
		md, err := FetchIDPMetadata(opts.IDPMetadataURL)
		if err != nil {
			return nil, err
		}
		if err := sp.configureFromMetadata(md); err != nil {
			return nil, err
		}
	}

	if sp.IDPCertificate == nil {
		return nil, errors.New("samlsp: no IdP certificate configured")
	}

	issuer, err := NewTokenIssuer()
	if err != nil {
		return nil, err
	}
	return &Middleware{
		ServiceProvider: sp,
		Issuer:          issuer,
		Verifier:        issuer,
	}, nil
}

// FetchIDPMetadata retrieves and parses the IdP's entity descriptor.
func FetchIDPMetadata(metadataURL string) (*samlbridge.EntityDescriptor, error) {
	resp, err := http.Get(metadataURL)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot fetch IdP metadata from %s", metadataURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("cannot fetch IdP metadata from %s: %s", metadataURL, resp.Status)
	}

	md := samlbridge.EntityDescriptor{}
	if err := xml.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, errors.Wrap(err, "cannot parse IdP metadata")
	}
	return &md, nil
}

func (sp *ServiceProvider) configureFromMetadata(md *samlbridge.EntityDescriptor) error {
	if md.IDPSSODescriptor == nil {
		return errors.New("metadata does not describe an IdP")
	}
	for _, ep := range md.IDPSSODescriptor.SingleSignOnServices {
		if ep.Binding == samlbridge.HTTPPostBinding {
			sp.IDPSSOURL = ep.Location
			break
		}
	}
	for _, kd := range md.IDPSSODescriptor.KeyDescriptors {
		if kd.Use != "" && kd.Use != "signing" {
			continue
		}
		cert, err := samlbridge.ParseCertificate(kd.KeyInfo.Certificate)
		if err != nil {
			return err
		}
		sp.IDPCertificate = cert
		break
	}
	return nil
}
