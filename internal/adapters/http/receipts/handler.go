// Package receipts exposes the operator surface over receipt records:
// lookup by number and manual retry of a failed fiscalization.
package receipts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"fiskal/internal/application/fiscalization"
	"fiskal/internal/core/receipt"
	infrahttp "fiskal/internal/infrastructure/http"

	"github.com/go-chi/chi/v5"
)

// Service is the slice of the application service these endpoints need.
type Service interface {
	FindByNumber(ctx context.Context, receiptNumber int64) (*receipt.Receipt, error)
	Retry(ctx context.Context, receiptNumber int64, artifactFolder string) (fiscalization.Result, error)
}

// ReceiptResponse is the read model returned by the lookup endpoint.
type ReceiptResponse struct {
	ReceiptNumber int64  `json:"receipt_number"`
	Year          int    `json:"year"`
	ExternalID    string `json:"external_id"`
	OrderID       string `json:"order_id,omitempty"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	PaymentTime   string `json:"payment_time"`
	Status        string `json:"status"`
	ZKI           string `json:"zki,omitempty"`
	JIR           string `json:"jir,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type Handler struct {
	service Service
	log     *slog.Logger
}

func NewHandler(service Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// HandleGet processes GET /receipts/{number}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	number, ok := h.receiptNumber(w, r)
	if !ok {
		return
	}

	rec, err := h.service.FindByNumber(r.Context(), number)
	if errors.Is(err, receipt.ErrNotFound) {
		infrahttp.WriteError(w, http.StatusNotFound, "receipt not found", nil, h.log)
		return
	}
	if err != nil {
		h.log.Error("Receipt lookup failed", "receipt_number", number, "error", err)
		infrahttp.WriteError(w, http.StatusInternalServerError, "receipt lookup failed", nil, h.log)
		return
	}

	infrahttp.WriteJSON(w, http.StatusOK, toResponse(rec))
}

// HandleRetry processes POST /receipts/{number}/retry. The attempt reuses
// the record's original number, amount and payment time; a completed
// receipt is refused.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	number, ok := h.receiptNumber(w, r)
	if !ok {
		return
	}

	folder := fiscalization.ArchiveFolder("manual-retry", strconv.FormatInt(number, 10), time.Now())
	result, err := h.service.Retry(r.Context(), number, folder)
	if err != nil {
		if errors.Is(err, receipt.ErrNotFound) {
			infrahttp.WriteError(w, http.StatusNotFound, "receipt not found", nil, h.log)
			return
		}
		var fault *receipt.Fault
		if errors.As(err, &fault) && fault.Class == receipt.FaultValidation {
			infrahttp.WriteJSON(w, http.StatusConflict, map[string]any{
				"status":  "refused",
				"message": fault.Message,
			})
			return
		}
		h.log.Error("Retry failed", "receipt_number", number, "error", err)
		infrahttp.WriteError(w, http.StatusInternalServerError, "retry failed", nil, h.log)
		return
	}

	status := "failed"
	if result.Status == receipt.StatusCompleted {
		status = "success"
	}
	infrahttp.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"receipt_number": result.ReceiptNumber,
		"ZKI":            result.ZKI,
		"JIR":            result.JIR,
		"fault_class":    string(result.FaultClass),
	})
}

func (h *Handler) receiptNumber(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "number")
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || number <= 0 {
		infrahttp.WriteError(w, http.StatusBadRequest, "invalid receipt number", nil, h.log)
		return 0, false
	}
	return number, true
}

func toResponse(rec *receipt.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ReceiptNumber: rec.ReceiptNumber,
		Year:          rec.Year,
		ExternalID:    rec.ExternalID,
		OrderID:       rec.OrderID,
		Amount:        rec.Amount.StringFixed(2),
		Currency:      rec.Currency,
		PaymentTime:   rec.PaymentTime.Format(time.RFC3339),
		Status:        string(rec.Status),
		ZKI:           rec.ZKI,
		JIR:           rec.JIR,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     rec.UpdatedAt.Format(time.RFC3339),
	}
}
