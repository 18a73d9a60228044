package fina

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"
)

// CheckTLS performs a handshake-only probe of endpoint against the CA
// chain in caDir, without sending any protocol data. Used by the operator
// CLI to verify an endpoint/trust pairing before pointing live traffic at
// it.
func CheckTLS(ctx context.Context, endpoint, caDir string, timeout time.Duration) error {
	pool, _, err := loadCAPool(caDir)
	if err != nil {
		return err
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("endpoint %q is not https", endpoint)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    pool,
			ServerName: host,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("TLS handshake with %s failed: %w", endpoint, err)
	}
	return conn.Close()
}
