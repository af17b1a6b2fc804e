package samlbridge

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"regexp"
)

// KeyMaterial holds the certificate and private key a party signs with.
// It is loaded once at startup from configuration strings and is immutable
// for the lifetime of the process.
type KeyMaterial struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
}

// NewKeyMaterial parses a PEM certificate and PKCS#8 RSA private key from
// configuration strings.
func NewKeyMaterial(certificate, privateKey string) (*KeyMaterial, error) {
	cert, err := ParseCertificate(certificate)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{Certificate: cert, PrivateKey: key}, nil
}

var pemArmorRE = regexp.MustCompile(`-----(BEGIN|END)[^-]*-----|\s+`)

// decodeArmored strips PEM header and footer lines plus all whitespace and
// base64-decodes what remains. Configuration frequently delivers key
// material as a single line, so this is deliberately more tolerant than
// pem.Decode.
func decodeArmored(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(pemArmorRE.ReplaceAllString(s, ""))
}

// ParseCertificate parses an X.509 certificate from a PEM string or bare
// base64 DER.
func ParseCertificate(s string) (*x509.Certificate, error) {
	der, err := decodeArmored(s)
	if err != nil {
		return nil, &KeyMaterialError{Reason: "certificate is not valid base64", Err: err}
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, &KeyMaterialError{Reason: "cannot parse certificate", Err: err}
	}
	return cert, nil
}

// ParsePrivateKey parses a PKCS#8 RSA private key from a PEM string or bare
// base64 DER.
func ParsePrivateKey(s string) (*rsa.PrivateKey, error) {
	der, err := decodeArmored(s)
	if err != nil {
		return nil, &KeyMaterialError{Reason: "private key is not valid base64", Err: err}
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, &KeyMaterialError{Reason: "cannot parse private key", Err: err}
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, &KeyMaterialError{Reason: "private key is not RSA"}
	}
	return rsaKey, nil
}
