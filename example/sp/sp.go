// Package main runs an example service provider that exchanges SAML
// assertions for bearer tokens and guards a small API with them.
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quillauth/samlbridge"
	"github.com/quillauth/samlbridge/samlsp"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	godotenv.Load()
	logger := logrus.New()

	baseURL := getenv("SP_BASE_URL", "http://localhost:8080")
	listen := getenv("SP_LISTEN", ":8080")

	key, err := samlbridge.NewKeyMaterial(os.Getenv("SP_CERTIFICATE"), os.Getenv("SP_PRIVATE_KEY"))
	if err != nil {
		logger.WithError(err).Fatal("cannot load SP key material")
	}

	opts := samlsp.Options{
		EntityID:       baseURL,
		ACSURL:         baseURL + "/api/auth/saml/login",
		Key:            key,
		IDPMetadataURL: os.Getenv("IDP_METADATA_URL"),
	}
	if opts.IDPMetadataURL == "" {
		opts.IDPSSOURL = getenv("IDP_SSO_URL", "http://localhost:8081/saml/sso")
		opts.IDPCertificate, err = samlbridge.ParseCertificate(os.Getenv("IDP_CERTIFICATE"))
		if err != nil {
			logger.WithError(err).Fatal("cannot parse IDP_CERTIFICATE")
		}
	}

	middleware, err := samlsp.New(opts)
	if err != nil {
		logger.WithError(err).Fatal("cannot create service provider")
	}
	middleware.Logger = logger

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", middleware)
	mux.Handle("/api/me", middleware.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := samlsp.PrincipalFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Email string   `json:"email"`
			Roles []string `json:"roles"`
		}{Email: principal.Email, Roles: principal.Roles})
	})))

	logger.WithField("url", baseURL).Info("service provider listening")
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
