// Package samlidp implements a SAML identity provider as an http.Handler.
// It validates signed authentication requests, checks credentials against a
// bcrypt-backed user store, and answers with signed responses posted back
// to the requesting service provider's assertion consumer endpoint.
package samlidp

import (
	"crypto/x509"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web"

	"github.com/quillauth/samlbridge"
)

type Options struct {
	// URL is the base URL this server is reachable at, without a trailing
	// slash. Metadata and SSO endpoints are derived from it.
	URL string

	// Key and Certificate are the IdP's signing key pair, PEM or bare
	// base64.
	Key         string
	Certificate string

	// ServiceProviderCertificate verifies signatures on incoming
	// authentication requests.
	ServiceProviderCertificate *x509.Certificate

	Store  Store
	Logger logrus.FieldLogger
}

// Server is the identity provider. The embedded handler serves the SAML
// endpoints and the user management API.
type Server struct {
	http.Handler
	IDP    samlbridge.IdentityProvider
	Store  Store
	logger logrus.FieldLogger
}

func New(opts Options) (*Server, error) {
	key, err := samlbridge.NewKeyMaterial(opts.Certificate, opts.Key)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	mux := web.New()
	s := &Server{
		IDP: samlbridge.IdentityProvider{
			Key:                        key,
			EntityID:                   opts.URL + "/saml/metadata",
			SSOURL:                     opts.URL + "/saml/sso",
			ServiceProviderCertificate: opts.ServiceProviderCertificate,
		},
		Store:   opts.Store,
		logger:  logger,
		Handler: mux,
	}

	mux.Get("/saml/metadata", s.HandleMetadata)
	mux.Post("/saml/login", s.HandleLoginForm)
	mux.Post("/saml/sso", s.HandleSSO)

	mux.Get("/users/", s.HandleListUsers)
	mux.Get("/users/:id", s.HandleGetUser)
	mux.Put("/users/:id", s.HandlePutUser)
	mux.Delete("/users/:id", s.HandleDeleteUser)

	return s, nil
}

// HandleMetadata serves the IdP's entity descriptor. The output is
// byte-stable so peers can pin it.
func (s *Server) HandleMetadata(_ web.C, w http.ResponseWriter, _ *http.Request) {
	buf, err := s.IDP.MetadataXML()
	if err != nil {
		s.logger.WithError(err).Error("cannot serialize metadata")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	w.Write(buf)
}
