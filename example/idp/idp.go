// Package main runs an example identity provider with a single seeded
// account. Configuration comes from the environment, optionally via a .env
// file.
package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quillauth/samlbridge"
	"github.com/quillauth/samlbridge/samlidp"
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

	baseURL := getenv("IDP_BASE_URL", "http://localhost:8081")
	listen := getenv("IDP_LISTEN", ":8081")

	spCert, err := samlbridge.ParseCertificate(os.Getenv("SP_CERTIFICATE"))
	if err != nil {
		logger.WithError(err).Fatal("cannot parse SP_CERTIFICATE")
	}

	server, err := samlidp.New(samlidp.Options{
		URL:                        baseURL,
		Key:                        os.Getenv("IDP_PRIVATE_KEY"),
		Certificate:                os.Getenv("IDP_CERTIFICATE"),
		ServiceProviderCertificate: spCert,
		Store:                      &samlidp.MemoryStore{},
		Logger:                     logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("cannot create identity provider")
	}

	password := "password"
	err = server.StoreUser(samlidp.User{
		Email:             "test@example.com",
		PlaintextPassword: &password,
		Roles:             []string{"USER", "ADMIN"},
	})
	if err != nil {
		logger.WithError(err).Fatal("cannot seed user")
	}

	logger.WithField("url", baseURL).Info("identity provider listening")
	if err := http.ListenAndServe(listen, server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
