package samlsp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillauth/samlbridge"
)

func testKeyMaterial(t *testing.T, commonName string) *samlbridge.KeyMaterial {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &samlbridge.KeyMaterial{Certificate: cert, PrivateKey: key}
}

const (
	testACSURL   = "http://localhost:8080/api/auth/saml/login"
	testEntityID = "http://localhost:8080"
	testSSOURL   = "http://localhost:8081/saml/sso"
)

// testExchange wires an identity provider and a service provider to each
// other's certificates, the way metadata exchange would in production.
func testExchange(t *testing.T) (*samlbridge.IdentityProvider, *ServiceProvider) {
	t.Helper()
	idpKey := testKeyMaterial(t, "idp.example.com")
	spKey := testKeyMaterial(t, "sp.example.com")

	idp := &samlbridge.IdentityProvider{
		Key:                        idpKey,
		EntityID:                   "http://localhost:8081/saml/metadata",
		SSOURL:                     testSSOURL,
		ServiceProviderCertificate: spKey.Certificate,
	}
	sp := &ServiceProvider{
		EntityID:       testEntityID,
		ACSURL:         testACSURL,
		Key:            spKey,
		IDPSSOURL:      testSSOURL,
		IDPCertificate: idpKey.Certificate,
		Tracker:        NewRequestTracker(),
	}
	return idp, sp
}
