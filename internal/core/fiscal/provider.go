// Package fiscal defines the contract between the receipt lifecycle and the
// fiscal-system integrations. Today the only variant is the Croatian FINA
// service, but the interface is a closed set keyed by provider name so a
// second tax authority can be added without touching the orchestration.
package fiscal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fiskal/internal/core/archive"

	"github.com/shopspring/decimal"
)

// Request carries everything a provider needs for one fiscalization
// attempt. The receipt number and payment fields are fixed by the existing
// record; a retry re-enters here with the original values.
type Request struct {
	Year          int
	ReceiptNumber int64
	Amount        decimal.Decimal
	Currency      string
	PaymentTime   time.Time
	ArchiveFolder string
}

// Result classifies how an attempt ended.
type Result string

const (
	// ResultCompleted means the authority issued a fiscal identifier.
	ResultCompleted Result = "completed"
	// ResultRejected means the authority returned a data fault; retrying
	// without fixing the submission will fail again.
	ResultRejected Result = "rejected"
	// ResultUnavailable means the authority or the transport failed
	// transiently; the attempt is safe to retry as-is.
	ResultUnavailable Result = "unavailable"
	// ResultAmbiguous means a response arrived but could not be
	// interpreted. Success must not be assumed; the record needs manual
	// reconciliation before any resubmission.
	ResultAmbiguous Result = "ambiguous"
)

// Outcome is what one attempt produced. ZKI is filled as soon as it is
// computed so a failed attempt still records it for diagnosis. Artifacts
// hold the pre-send signed document and the raw response for the archival
// collaborator.
type Outcome struct {
	Result       Result
	ZKI          string
	JIR          string
	FaultCode    string
	FaultMessage string
	Artifacts    []archive.Artifact
}

// Provider is one fiscal-system integration.
//
// Fiscalize performs a single attempt: it returns a non-nil error only for
// failures before or on the wire (classified via receipt.Fault); once a
// response was interpreted the classification lives in Outcome.Result.
// Either way the returned Outcome carries whatever was computed.
type Provider interface {
	Name() string
	Fiscalize(ctx context.Context, req Request) (Outcome, error)
}

// Registry is the closed set of configured providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its name. Registering the same name twice
// is a programming error.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.Name()]; ok {
		return fmt.Errorf("fiscal provider %q already registered", p.Name())
	}
	r.providers[p.Name()] = p
	return nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown fiscal provider %q (registered: %v)", name, r.names())
	}
	return p, nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
