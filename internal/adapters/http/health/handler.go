// Package health exposes the monitoring endpoint. Besides the liveness
// answer it piggybacks the stale-record sweep, so a monitored deployment
// regularly surfaces receipts stuck in processing without a separate
// scheduler.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fiskal/internal/core/receipt"
	infrahttp "fiskal/internal/infrastructure/http"
)

// requiredEnvVars must all be set for the engine to operate.
var requiredEnvVars = []string{
	"S3_ACCESS_KEY",
	"S3_SECRET_KEY",
	"S3_ENDPOINT_URL",
	"S3_BUCKET_NAME",
	"WEBHOOK_SIGNING_SECRET",
	"P12_PATH",
	"P12_PASSWORD",
	"FINA_CA_DIR_PATH",
	"FINA_TIMEZONE",
	"FINA_ENDPOINT",
	"OIB_COMPANY",
	"OIB_OPERATOR",
	"LOCATION_ID",
	"REGISTER_ID",
	"PG_HOST",
	"PG_PORT",
	"PG_USER",
	"PG_PASSWORD",
	"PG_DB",
}

// Pinger is the slice of the connection pool the check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cleaner sweeps stale processing records.
type Cleaner interface {
	CleanupStale(ctx context.Context, maxAge time.Duration) ([]receipt.StaleRecord, error)
}

type Handler struct {
	db       Pinger
	cleaner  Cleaner
	staleAge time.Duration
	log      *slog.Logger
}

func NewHandler(db Pinger, cleaner Cleaner, staleAge time.Duration, log *slog.Logger) *Handler {
	return &Handler{db: db, cleaner: cleaner, staleAge: staleAge, log: log}
}

// HandleCheck processes GET /health.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)

	if missing := missingEnv(); len(missing) > 0 {
		h.log.Error("Health check failed, environment incomplete", "missing_vars", missing)
		infrahttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":       "unhealthy",
			"environment":  "incomplete",
			"missing_vars": missing,
			"error":        "Required environment variables not set",
			"timestamp":    now,
		})
		return
	}

	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Error("Health check failed, database unreachable", "error", err)
		infrahttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":      "unhealthy",
			"database":    "disconnected",
			"environment": "complete",
			"error":       "Database connection failed",
			"timestamp":   now,
		})
		return
	}

	// Sweep stuck records while we are here. A failing sweep never fails
	// the health answer.
	if h.cleaner != nil {
		if stale, err := h.cleaner.CleanupStale(r.Context(), h.staleAge); err != nil {
			h.log.Warn("Cleanup during health check failed", "error", err)
		} else if len(stale) > 0 {
			for _, rec := range stale {
				h.log.Warn("Stale processing record marked failed",
					"receipt_number", rec.ReceiptNumber,
					"external_id", rec.ExternalID,
				)
			}
		}
	}

	infrahttp.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"database":    "connected",
		"environment": "complete",
		"timestamp":   now,
	})
}

func missingEnv() []string {
	var missing []string
	for _, name := range requiredEnvVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
