// Package fina implements fiscalization against the Croatian tax
// authority's CIS service (the "FINA" integration): protective-code (ZKI)
// computation, RacunZahtjev construction, enveloped XML signing, the
// SOAP-over-HTTPS exchange and response interpretation.
package fina

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"fiskal/internal/core/receipt"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// SigningContext holds the entity's certificate and private key, unlocked
// once from the PKCS#12 bundle. It is immutable and safe to share across
// goroutines; construct it explicitly and pass it in, never reach for
// process-wide state.
type SigningContext struct {
	cert    *x509.Certificate
	key     *rsa.PrivateKey
	caCerts []*x509.Certificate
	certPEM []byte
	keyPEM  []byte
}

// LoadSigningContext reads and unlocks a PKCS#12 bundle. An unreadable file
// or a wrong passphrase is a configuration fault: it must surface before
// any receipt number is consumed.
func LoadSigningContext(p12Path, password string) (*SigningContext, error) {
	data, err := os.ReadFile(p12Path)
	if err != nil {
		return nil, receipt.Configf(err, "reading certificate bundle %s", p12Path)
	}

	key, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, receipt.Configf(err, "decoding certificate bundle %s", p12Path)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, receipt.Configf(nil, "certificate bundle %s does not hold an RSA key", p12Path)
	}

	return newSigningContext(rsaKey, cert, caCerts)
}

// NewSigningContext builds a context from an already-parsed key pair. Used
// by tests to inject disposable certificates.
func NewSigningContext(key *rsa.PrivateKey, cert *x509.Certificate) (*SigningContext, error) {
	return newSigningContext(key, cert, nil)
}

func newSigningContext(key *rsa.PrivateKey, cert *x509.Certificate, caCerts []*x509.Certificate) (*SigningContext, error) {
	if key == nil || cert == nil {
		return nil, receipt.Configf(nil, "signing context requires both key and certificate")
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}

	return &SigningContext{
		cert:    cert,
		key:     key,
		caCerts: caCerts,
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}),
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}, nil
}

// Certificate returns the signing certificate.
func (s *SigningContext) Certificate() *x509.Certificate { return s.cert }

// PrivateKey returns the RSA private key.
func (s *SigningContext) PrivateKey() *rsa.PrivateKey { return s.key }

// TLSCertificate returns the key pair in the form the transport layer
// needs for client-certificate authentication.
func (s *SigningContext) TLSCertificate() tls.Certificate {
	chain := [][]byte{s.cert.Raw}
	for _, ca := range s.caCerts {
		chain = append(chain, ca.Raw)
	}
	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  s.key,
		Leaf:        s.cert,
	}
}
