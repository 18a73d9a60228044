package fina

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"fiskal/internal/core/archive"
	"fiskal/internal/core/fiscal"
	"fiskal/internal/core/receipt"

	"github.com/google/uuid"
)

// Artifact names within the archive folder.
const (
	fileRequestXML   = "fina-request.xml"
	fileRequestYAML  = "fina-request.yaml"
	fileResponseXML  = "fina-response.xml"
	fileResponseYAML = "fina-response.yaml"
)

// Provider implements fiscal.Provider for the Croatian CIS service.
type Provider struct {
	creds  *SigningContext
	signer *Signer
	client *Client
	id     Identity
	policy TimePolicy
	log    *slog.Logger
	now    func() time.Time
}

// Options collects the provider's collaborators. Creds, Client and
// Location are required.
type Options struct {
	Creds    *SigningContext
	Client   *Client
	Identity Identity
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time // attempt-time source, defaults to time.Now
}

func NewProvider(opts Options) *Provider {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{
		creds:  opts.Creds,
		signer: NewSigner(opts.Creds),
		client: opts.Client,
		id:     opts.Identity,
		policy: TimePolicy{Location: opts.Location},
		log:    opts.Logger,
		now:    opts.Now,
	}
}

func (p *Provider) Name() string { return "fina" }

// Fiscalize performs one attempt: ZKI, document build, signature, wire
// exchange, interpretation. The returned Outcome carries whatever was
// computed even when err is non-nil, so the lifecycle manager can persist
// a ZKI from a failed attempt.
func (p *Provider) Fiscalize(ctx context.Context, req fiscal.Request) (fiscal.Outcome, error) {
	var out fiscal.Outcome

	zki, err := ComputeZKI(p.creds, p.policy, p.id.CompanyOIB, req.PaymentTime,
		req.ReceiptNumber, p.id.LocationID, p.id.RegisterID, req.Amount)
	if err != nil {
		return out, receipt.Configf(err, "computing protective code")
	}
	out.ZKI = zki
	p.log.Info("Protective code computed", "receipt_number", req.ReceiptNumber, "zki", zki)

	messageID := uuid.NewString()
	nodeID := newNodeID()

	doc := BuildRequest(p.id, RequestParams{
		MessageID:     messageID,
		NodeID:        nodeID,
		RequestTime:   p.policy.XMLTimestamp(p.now()),
		PaymentTime:   p.policy.XMLTimestamp(req.PaymentTime),
		ReceiptNumber: req.ReceiptNumber,
		Amount:        req.Amount,
		ZKI:           zki,
	})

	// Keep a pre-signature copy for the readable archive summary; the
	// signed envelope is archived verbatim.
	unsignedXML, _ := doc.WriteToBytes()

	signed, err := p.signer.Sign(doc, nodeID)
	if err != nil {
		return out, receipt.Configf(err, "signing fiscalization request")
	}

	envelope, err := WrapSOAP(signed)
	if err != nil {
		return out, receipt.Configf(err, "wrapping signed request")
	}
	out.Artifacts = appendArtifact(out.Artifacts, fileRequestXML, "text/xml", envelope)
	if summary, err := xmlToYAML(unsignedXML); err == nil {
		out.Artifacts = appendArtifact(out.Artifacts, fileRequestYAML, "text/yaml", summary)
	}

	body, err := p.client.Send(ctx, envelope)
	if err != nil {
		return out, err
	}
	out.Artifacts = appendArtifact(out.Artifacts, fileResponseXML, "text/xml", body)
	if summary, err := responseToYAML(body); err == nil {
		out.Artifacts = appendArtifact(out.Artifacts, fileResponseYAML, "text/yaml", summary)
	}

	reply, err := Interpret(body)
	if err != nil {
		out.Result = fiscal.ResultAmbiguous
		out.FaultMessage = err.Error()
		p.log.Error("Authority response is ambiguous", "receipt_number", req.ReceiptNumber, "error", err)
		return out, nil
	}

	if reply.JIR != "" {
		out.Result = fiscal.ResultCompleted
		out.JIR = reply.JIR
		p.log.Info("Fiscalization confirmed", "receipt_number", req.ReceiptNumber, "jir", reply.JIR)
		return out, nil
	}

	fault := reply.Faults[0]
	out.FaultCode = fault.Code
	out.FaultMessage = strings.TrimSpace(fault.Message)
	if fault.Retryable() {
		out.Result = fiscal.ResultUnavailable
	} else {
		out.Result = fiscal.ResultRejected
	}
	p.log.Warn("Authority rejected the submission",
		"receipt_number", req.ReceiptNumber,
		"fault_code", fault.Code,
		"fault_message", fault.Message,
		"retryable", fault.Retryable(),
	)
	return out, nil
}

// newNodeID returns a signature reference ID in the G-prefixed 15-hex-char
// form the service accepts as an XML ID.
func newNodeID() string {
	id := uuid.New()
	return "G" + hex.EncodeToString(id[:])[:15]
}

func appendArtifact(arts []archive.Artifact, name, contentType string, data []byte) []archive.Artifact {
	return append(arts, archive.Artifact{Name: name, ContentType: contentType, Data: data})
}
