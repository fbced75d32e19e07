// Package signer implements RSASSA-PKCS1-v1_5/SHA-256 signing of
// canonical manifest JSON and its structured-headers encoding, per
// spec.md §4.2.
package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/entropyconquers/expo-update-server-x/internal/pemcodec"
)

// ErrPKCS1Unsupported is returned when the supplied private key is
// PKCS#1 (RSA PRIVATE KEY) rather than PKCS#8. The PEM Codec accepts
// and normalizes PKCS#1 keys; only the Signer refuses them.
var ErrPKCS1Unsupported = errors.New("signer: PKCS#1 (RSA PRIVATE KEY) is not supported, convert the key to PKCS#8 (PRIVATE KEY)")

// ErrNotRSAKey is returned when a PKCS#8 key decodes to a non-RSA
// private key type.
var ErrNotRSAKey = errors.New("signer: private key is not an RSA key")

// Sign signs manifestJSON (the exact bytes sent in the response) using
// the app's normalized PKCS#8 PEM private key, and returns the base64
// signature.
func Sign(manifestJSON []byte, normalizedKey pemcodec.Result) (string, error) {
	if normalizedKey.Marker == "RSA PRIVATE KEY" {
		return "", ErrPKCS1Unsupported
	}

	block, _ := pem.Decode([]byte(normalizedKey.PEM))
	if block == nil {
		return "", fmt.Errorf("signer: invalid pem block")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("signer: parse pkcs8 key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return "", ErrNotRSAKey
	}

	digest := sha256.Sum256(manifestJSON)
	sig, err := rsa.SignPKCS1v15(rand.Reader, rsaKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("signer: sign: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks sig (base64) against manifestJSON using the RSA public
// key embedded in an x509 certificate. Used by tests and by external
// clients documented in spec.md §8 ("PKI round-trip" / signed-manifest
// scenario); not exercised by the serving path itself.
func Verify(manifestJSON []byte, sigB64 string, cert *x509.Certificate) error {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return ErrNotRSAKey
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("signer: decode signature: %w", err)
	}
	digest := sha256.Sum256(manifestJSON)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig)
}

// HeaderValue formats the expo-signature part header: a structured-
// headers dictionary with two string-valued keys, each quoted, no
// parameters. The pack carries no general structured-headers (SFV)
// encoder, so this is a direct literal formatting of the one shape
// spec.md §4.2/§6 requires, not a generic encoder.
func HeaderValue(sigB64 string) string {
	return fmt.Sprintf(`sig="%s", keyid="main"`, sigB64)
}
