package fina

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

// newTestCreds generates a disposable self-signed key pair. 1024-bit keys
// keep the suite fast; nothing here leaves the process.
func newTestCreds(t *testing.T) *SigningContext {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "FISKAL TEST", Organization: []string{"TEST d.o.o."}},
		Issuer:       pkix.Name{CommonName: "FISKAL TEST CA"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parsing certificate: %v", err)
	}

	creds, err := NewSigningContext(key, cert)
	if err != nil {
		t.Fatalf("building signing context: %v", err)
	}
	return creds
}

func zagrebPolicy(t *testing.T) TimePolicy {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Zagreb")
	if err != nil {
		t.Fatalf("loading timezone: %v", err)
	}
	return TimePolicy{Location: loc}
}
