package fina

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"fiskal/internal/core/receipt"
)

// Client sends signed documents to the authority endpoint over mutually
// authenticated TLS. The server is validated only against the CA chain
// loaded for this deployment environment; there is no fallback to the
// system trust store, so pointing the test chain at the production endpoint
// fails closed. The client never retries: retry policy belongs to the
// operator, not the transport.
type Client struct {
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient builds the transport for one endpoint/trust pair.
func NewClient(endpoint, caDir string, creds *SigningContext, timeout time.Duration, log *slog.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, receipt.Configf(nil, "fiscalization endpoint is not configured")
	}

	pool, count, err := loadCAPool(caDir)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded authority CA chain", "ca_dir", caDir, "certificates", count)

	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		RootCAs:      pool,
		Certificates: []tls.Certificate{creds.TLSCertificate()},
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
				IdleConnTimeout: 90 * time.Second,
			},
			Timeout: timeout,
		},
		log: log,
	}, nil
}

// Send posts the envelope and returns the raw response body. Transport
// failures and non-200 statuses are recoverable faults.
func (c *Client) Send(ctx context.Context, envelope []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, receipt.Recoverablef(err, "sending to authority endpoint")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, receipt.Recoverablef(err, "reading authority response")
	}

	c.log.Info("Authority exchange finished", "status", resp.StatusCode, "bytes", len(body))

	// The service answers business faults inside a 500 SOAP fault body, so
	// both 200 and 500 carry an interpretable document. Anything else is a
	// transport-level failure.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return nil, receipt.Recoverablef(nil, "unexpected status %d from authority", resp.StatusCode)
	}

	return body, nil
}

// loadCAPool builds a certificate pool from every *.pem file in dir. An
// empty or missing directory is a configuration fault: verification must
// never silently degrade to an empty trust set.
func loadCAPool(dir string) (*x509.CertPool, int, error) {
	if dir == "" {
		return nil, 0, receipt.Configf(nil, "authority CA directory is not configured")
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.pem"))
	if err != nil {
		return nil, 0, receipt.Configf(err, "listing CA directory %s", dir)
	}
	if len(matches) == 0 {
		return nil, 0, receipt.Configf(nil, "no .pem certificates found in %s", dir)
	}
	sort.Strings(matches)

	pool := x509.NewCertPool()
	loaded := 0
	for _, path := range matches {
		pemData, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, receipt.Configf(err, "reading CA certificate %s", path)
		}
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, 0, receipt.Configf(nil, "no usable certificate in %s", path)
		}
		loaded++
	}

	return pool, loaded, nil
}
