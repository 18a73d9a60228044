package fina

import (
	"context"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fiskal/internal/core/fiscal"
	"fiskal/internal/core/receipt"
	"fiskal/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAuthorityStub stands in for the CIS endpoint: a TLS server whose CA
// cert is written to a temp dir so the client's fail-closed trust loading
// has something real to chew on.
func newAuthorityStub(t *testing.T, handler http.HandlerFunc) (*httptest.Server, string) {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	caDir := t.TempDir()
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(filepath.Join(caDir, "authority.pem"), pemBytes, 0o600))

	return srv, caDir
}

func newStubProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	creds := newTestCreds(t)
	srv, caDir := newAuthorityStub(t, handler)

	client, err := NewClient(srv.URL, caDir, creds, 5*time.Second, testutil.NewNullLogger())
	require.NoError(t, err)

	loc, err := time.LoadLocation("Europe/Zagreb")
	require.NoError(t, err)

	return NewProvider(Options{
		Creds:    creds,
		Client:   client,
		Identity: testIdentity(),
		Location: loc,
		Logger:   testutil.NewNullLogger(),
	})
}

func fiscalRequest() fiscal.Request {
	return fiscal.Request{
		Year:          2025,
		ReceiptNumber: 42,
		Amount:        decimal.RequireFromString("25.50"),
		Currency:      "EUR",
		PaymentTime:   time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC),
	}
}

func TestFiscalizeCompleted(t *testing.T) {
	var received []byte
	provider := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(successResponse))
	})

	out, err := provider.Fiscalize(context.Background(), fiscalRequest())
	require.NoError(t, err)

	assert.Equal(t, fiscal.ResultCompleted, out.Result)
	assert.Equal(t, "a26d9a06-5a52-4f7a-9cf4-222222222222", out.JIR)
	assert.Regexp(t, `^[0-9a-f]{32}$`, out.ZKI)

	// The wire request is a signed RacunZahtjev inside a SOAP envelope.
	assert.Contains(t, string(received), "soapenv:Envelope")
	assert.Contains(t, string(received), "tns:RacunZahtjev")
	assert.Contains(t, string(received), "<tns:ZastKod>"+out.ZKI+"</tns:ZastKod>")
	assert.Contains(t, string(received), "SignatureValue")

	names := make([]string, 0, len(out.Artifacts))
	for _, art := range out.Artifacts {
		names = append(names, art.Name)
	}
	assert.Equal(t, []string{"fina-request.xml", "fina-request.yaml", "fina-response.xml", "fina-response.yaml"}, names)
}

func TestFiscalizeServiceFault(t *testing.T) {
	provider := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(fmtFault("s001", "Sustav nije dostupan")))
	})

	out, err := provider.Fiscalize(context.Background(), fiscalRequest())
	require.NoError(t, err)
	assert.Equal(t, fiscal.ResultUnavailable, out.Result)
	assert.Equal(t, "s001", out.FaultCode)
	assert.NotEmpty(t, out.ZKI)
}

func TestFiscalizeDataFault(t *testing.T) {
	provider := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(fmtFault("v100", "Neispravan OIB")))
	})

	out, err := provider.Fiscalize(context.Background(), fiscalRequest())
	require.NoError(t, err)
	assert.Equal(t, fiscal.ResultRejected, out.Result)
	assert.Equal(t, "v100", out.FaultCode)
}

func TestFiscalizeAmbiguousResponse(t *testing.T) {
	provider := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("upstream proxy error"))
	})

	out, err := provider.Fiscalize(context.Background(), fiscalRequest())
	require.NoError(t, err)
	assert.Equal(t, fiscal.ResultAmbiguous, out.Result)
	assert.NotEmpty(t, out.ZKI)
}

func TestFiscalizeTransportFailure(t *testing.T) {
	provider := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	out, err := provider.Fiscalize(context.Background(), fiscalRequest())
	require.Error(t, err)
	assert.Equal(t, receipt.FaultRecoverable, receipt.ClassOf(err))
	// ZKI and the request artifacts survive the failed exchange.
	assert.NotEmpty(t, out.ZKI)
	assert.NotEmpty(t, out.Artifacts)
}

func TestNewClientRequiresTrustAnchors(t *testing.T) {
	creds := newTestCreds(t)

	_, err := NewClient("https://cis.example", t.TempDir(), creds, time.Second, testutil.NewNullLogger())
	require.Error(t, err)
	assert.Equal(t, receipt.FaultConfig, receipt.ClassOf(err))

	_, err = NewClient("", t.TempDir(), creds, time.Second, testutil.NewNullLogger())
	require.Error(t, err)
	assert.Equal(t, receipt.FaultConfig, receipt.ClassOf(err))
}

func fmtFault(code, message string) string {
	return fmt.Sprintf(faultResponse, code, message)
}
