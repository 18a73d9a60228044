// Package webhook receives payment-platform events and feeds confirmed
// card payments into fiscalization. The endpoint is idempotent: redelivery
// of an event answers from the existing receipt record.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fiskal/internal/application/fiscalization"
	"fiskal/internal/core/archive"
	"fiskal/internal/core/receipt"
	infrahttp "fiskal/internal/infrastructure/http"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Payloads are small JSON documents; anything larger is hostile.
const maxPayloadBytes = 1 << 20

const eventPaymentSucceeded = "payment_intent.succeeded"

// maxAmountCents caps the accepted amount at roughly ten million units.
const maxAmountCents = 999_999_900

// Fiscalizer is the slice of the application service the webhook needs.
type Fiscalizer interface {
	Fiscalize(ctx context.Context, in fiscalization.PaymentInput) (fiscalization.Result, error)
}

// Event is the platform's webhook envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object PaymentIntent `json:"object"`
	} `json:"data"`
}

// PaymentIntent is the payment object inside a payment_intent event.
// Amount is in minor units (cents), Created a unix timestamp.
type PaymentIntent struct {
	ID          string            `json:"id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Created     int64             `json:"created"`
	Status      string            `json:"status"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

// Handler verifies, validates and dispatches payment events.
type Handler struct {
	service   Fiscalizer
	archiver  archive.Archiver
	secret    string
	tolerance time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// Options wires the handler. Archiver may be nil (raw payloads not kept).
type Options struct {
	Service   Fiscalizer
	Archiver  archive.Archiver
	Secret    string
	Tolerance time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewHandler(opts Options) *Handler {
	if opts.Archiver == nil {
		opts.Archiver = archive.Discard{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		service:   opts.Service,
		archiver:  opts.Archiver,
		secret:    opts.Secret,
		tolerance: opts.Tolerance,
		log:       opts.Logger,
		now:       opts.Now,
	}
}

// HandlePaymentIntent processes POST /stripe/payment-intent.
func (h *Handler) HandlePaymentIntent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, "unreadable request body", nil, h.log)
		return
	}

	if err := VerifySignature(payload, r.Header.Get(SignatureHeader), h.secret, h.tolerance, h.now()); err != nil {
		h.log.Error("Webhook signature verification failed", "error", err)
		infrahttp.WriteError(w, http.StatusBadRequest, "Invalid webhook signature", nil, h.log)
		return
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.log.Error("Webhook payload is not valid JSON", "error", err)
		infrahttp.WriteError(w, http.StatusBadRequest, "Invalid webhook data", nil, h.log)
		return
	}
	h.log.Info("Webhook signature verified", "event_id", event.ID, "event_type", event.Type)

	if event.Type != eventPaymentSucceeded {
		h.log.Info("Ignoring event type", "event_type", event.Type)
		infrahttp.WriteJSON(w, http.StatusOK, map[string]any{
			"status":     "ignored",
			"event_type": event.Type,
		})
		return
	}

	intent := event.Data.Object
	if err := validateIntent(intent); err != nil {
		h.log.Error("Webhook data validation failed", "error", err)
		infrahttp.WriteError(w, http.StatusBadRequest, "Invalid webhook data", nil, h.log)
		return
	}

	paymentTime := time.Unix(intent.Created, 0).UTC()
	amount := decimal.New(intent.Amount, -2)
	orderID := intent.Metadata["invoice_id"]
	if orderID == "" {
		orderID = intent.Metadata["order_id"]
	}
	if orderID == "" {
		orderID = intent.Description
	}

	folder := fiscalization.ArchiveFolder("stripe-payment-intent", event.ID, paymentTime)
	h.archivePayload(r.Context(), folder, payload, intent, paymentTime, amount, orderID)

	result, err := h.service.Fiscalize(r.Context(), fiscalization.PaymentInput{
		ExternalID:    intent.ID,
		OrderID:       orderID,
		Amount:        amount,
		Currency:      intent.Currency,
		PaymentTime:   paymentTime,
		ArchiveFolder: folder,
	})
	if err != nil {
		var fault *receipt.Fault
		if errors.As(err, &fault) && fault.Class == receipt.FaultValidation {
			infrahttp.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"status":     "error",
				"message":    fault.Message,
				"payment_id": intent.ID,
			})
			return
		}
		h.log.Error("Fiscalization failed before an attempt could run", "payment_id", intent.ID, "error", err)
		infrahttp.WriteError(w, http.StatusInternalServerError, "fiscalization failed", nil, h.log)
		return
	}

	h.writeResult(w, intent, result)
}

// writeResult maps the lifecycle state to the webhook contract. Redelivered
// events answer from the existing record: completed 200, in flight 202,
// failed 422 so the platform redelivers later.
func (h *Handler) writeResult(w http.ResponseWriter, intent PaymentIntent, result fiscalization.Result) {
	if result.Idempotent {
		switch result.Status {
		case receipt.StatusCompleted:
			infrahttp.WriteJSON(w, http.StatusOK, map[string]any{
				"status":         "success",
				"message":        "Payment already processed successfully",
				"ZKI":            result.ZKI,
				"JIR":            result.JIR,
				"receipt_number": result.ReceiptNumber,
				"idempotent":     true,
			})
		case receipt.StatusProcessing, receipt.StatusPending:
			infrahttp.WriteJSON(w, http.StatusAccepted, map[string]any{
				"status":         "processing",
				"message":        "Payment is currently being processed",
				"receipt_number": result.ReceiptNumber,
				"idempotent":     true,
			})
		default:
			infrahttp.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"status":         "failed",
				"message":        "Payment processing previously failed",
				"receipt_number": result.ReceiptNumber,
				"idempotent":     true,
			})
		}
		return
	}

	if result.Status == receipt.StatusCompleted {
		h.log.Info("Fiscalization successful", "payment_id", intent.ID, "jir", result.JIR, "zki", result.ZKI)
		infrahttp.WriteJSON(w, http.StatusOK, map[string]any{
			"status":         "success",
			"ZKI":            result.ZKI,
			"JIR":            result.JIR,
			"receipt_number": result.ReceiptNumber,
		})
		return
	}

	h.log.Warn("Fiscalization failed, no JIR received",
		"payment_id", intent.ID,
		"receipt_number", result.ReceiptNumber,
		"fault_class", result.FaultClass,
	)
	infrahttp.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "failed",
		"message":        "Fiscalization did not complete",
		"ZKI":            result.ZKI,
		"receipt_number": result.ReceiptNumber,
		"fault_class":    string(result.FaultClass),
	})
}

// archivePayload keeps the raw event plus a readable summary next to the
// fiscal documents of the same attempt. Failure is logged only.
func (h *Handler) archivePayload(ctx context.Context, folder string, payload []byte, intent PaymentIntent, paymentTime time.Time, amount decimal.Decimal, orderID string) {
	summary := map[string]any{
		"payment_id":       intent.ID,
		"payment_time":     paymentTime.Format("2006-01-02 15:04:05"),
		"payment_amount":   amount.StringFixed(2),
		"payment_currency": intent.Currency,
		"invoice_id":       orderID,
	}
	summaryYAML, err := yaml.Marshal(summary)
	if err != nil {
		h.log.Warn("Webhook summary serialization failed", "error", err)
		summaryYAML = nil
	}

	artifacts := []archive.Artifact{
		{Name: "stripe-webhook.json", ContentType: "application/json", Data: payload},
	}
	if summaryYAML != nil {
		artifacts = append(artifacts, archive.Artifact{
			Name: "stripe-webhook.yaml", ContentType: "application/yaml", Data: summaryYAML,
		})
	}
	if err := h.archiver.Save(ctx, folder, artifacts...); err != nil {
		h.log.Warn("Webhook payload archival failed", "folder", folder, "error", err)
	}
}

func validateIntent(intent PaymentIntent) error {
	if intent.ID == "" {
		return errors.New("missing payment id")
	}
	if intent.Amount <= 0 || intent.Amount > maxAmountCents {
		return errors.New("invalid payment amount")
	}
	if len(intent.Currency) != 3 || !isAlpha(intent.Currency) {
		return errors.New("invalid currency code")
	}
	if intent.Created <= 0 {
		return errors.New("invalid payment timestamp")
	}
	if intent.Status != "succeeded" {
		return errors.New("payment status is not succeeded")
	}
	return nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
