// Package postgres implements the receipt repository on PostgreSQL. The
// durable pieces of the contract live here: the receipt-number sequence,
// the (year, receipt_number) uniqueness and the never-overwrite-completed
// guard are all enforced by the database so independent worker processes
// stay correct without in-process coordination.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fiskal/internal/core/receipt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository implements receipt.Repository using a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

// Reserve allocates the next receipt number from the database sequence and
// inserts the initial row in the same statement. The row is committed
// immediately: a crash after this point leaves an inspectable processing
// record rather than a lost number.
func (r *Repository) Reserve(ctx context.Context, res receipt.Reservation) (*receipt.Receipt, error) {
	const query = `
		INSERT INTO fiscal_receipt (
			year, location_id, register_id,
			external_id, order_id, amount, currency,
			payment_time, status, archive_folder
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'processing', $9)
		RETURNING id, receipt_number, created_at, updated_at
	`

	rec := &receipt.Receipt{
		Year:          res.Year,
		LocationID:    res.LocationID,
		RegisterID:    res.RegisterID,
		ExternalID:    res.ExternalID,
		OrderID:       res.OrderID,
		Amount:        res.Amount,
		Currency:      res.Currency,
		PaymentTime:   res.PaymentTime,
		Status:        receipt.StatusProcessing,
		ArchiveFolder: res.ArchiveFolder,
	}

	err := r.pool.QueryRow(ctx, query,
		res.Year, res.LocationID, res.RegisterID,
		res.ExternalID, nullable(res.OrderID), res.Amount, res.Currency,
		res.PaymentTime, res.ArchiveFolder,
	).Scan(&rec.ID, &rec.ReceiptNumber, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "fiscal_receipt_external_id_key" {
				return nil, receipt.ErrDuplicatePayment
			}
			// A losing concurrent insert on (year, receipt_number) is an
			// allocation race, not a data fault.
			return nil, receipt.ErrNumberConflict
		}
		return nil, fmt.Errorf("reserving receipt number: %w", err)
	}

	r.log.Info("Reserved receipt number",
		"receipt_number", rec.ReceiptNumber,
		"year", rec.Year,
		"external_id", rec.ExternalID,
	)
	return rec, nil
}

// FindByExternalID looks a receipt up by the upstream payment identifier.
func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*receipt.Receipt, error) {
	return r.findWhere(ctx, "external_id = $1", externalID)
}

// FindByNumber looks a receipt up by receipt number.
func (r *Repository) FindByNumber(ctx context.Context, number int64) (*receipt.Receipt, error) {
	return r.findWhere(ctx, "receipt_number = $1", number)
}

func (r *Repository) findWhere(ctx context.Context, predicate string, arg any) (*receipt.Receipt, error) {
	query := `
		SELECT id, year, location_id, register_id, receipt_number,
		       external_id, COALESCE(order_id, ''), amount, currency,
		       COALESCE(zki, ''), COALESCE(jir, ''), payment_time, status,
		       COALESCE(archive_folder, ''), COALESCE(pdf_status, ''),
		       created_at, updated_at
		FROM fiscal_receipt
		WHERE ` + predicate

	rec := &receipt.Receipt{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&rec.ID, &rec.Year, &rec.LocationID, &rec.RegisterID, &rec.ReceiptNumber,
		&rec.ExternalID, &rec.OrderID, &rec.Amount, &rec.Currency,
		&rec.ZKI, &rec.JIR, &rec.PaymentTime, &rec.Status,
		&rec.ArchiveFolder, &rec.DocumentStatus,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}
		return nil, fmt.Errorf("querying receipt: %w", err)
	}
	return rec, nil
}

// MarkProcessing moves a failed or stuck record back into processing for a
// retry. Completed records are immutable.
func (r *Repository) MarkProcessing(ctx context.Context, id int64) error {
	const query = `
		UPDATE fiscal_receipt
		SET status = 'processing', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('pending', 'processing', 'failed')
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("marking receipt processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissedUpdate(ctx, id)
	}
	return nil
}

// RecordOutcome writes the attempt result. The status predicate keeps a
// completed row untouched even if a racing retry reports failure after a
// success was already recorded; zki and jir are written once and then
// preserved by COALESCE-style guards.
func (r *Repository) RecordOutcome(ctx context.Context, id int64, zki, jir string, status receipt.Status) error {
	const query = `
		UPDATE fiscal_receipt
		SET zki = COALESCE(NULLIF($2, ''), zki),
		    jir = COALESCE(NULLIF($3, ''), jir),
		    status = $4,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status != 'completed'
	`

	tag, err := r.pool.Exec(ctx, query, id, zki, jir, status)
	if err != nil {
		return fmt.Errorf("recording receipt outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissedUpdate(ctx, id)
	}

	r.log.Info("Receipt outcome recorded", "receipt_id", id, "status", status, "has_jir", jir != "")
	return nil
}

func (r *Repository) classifyMissedUpdate(ctx context.Context, id int64) error {
	var status receipt.Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM fiscal_receipt WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return receipt.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("classifying missed update: %w", err)
	}
	if status == receipt.StatusCompleted {
		return receipt.ErrAlreadyCompleted
	}
	return receipt.ErrNotFound
}

// CleanupStale flips processing records older than maxAge to failed so
// they surface for manual retry instead of sitting in processing forever.
func (r *Repository) CleanupStale(ctx context.Context, maxAge time.Duration) ([]receipt.StaleRecord, error) {
	const query = `
		UPDATE fiscal_receipt
		SET status = 'failed', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'processing' AND updated_at < NOW() - make_interval(secs => $1)
		RETURNING receipt_number, external_id
	`

	rows, err := r.pool.Query(ctx, query, maxAge.Seconds())
	if err != nil {
		return nil, fmt.Errorf("cleaning up stale receipts: %w", err)
	}
	defer rows.Close()

	var stale []receipt.StaleRecord
	for rows.Next() {
		var rec receipt.StaleRecord
		if err := rows.Scan(&rec.ReceiptNumber, &rec.ExternalID); err != nil {
			return nil, fmt.Errorf("scanning stale receipt: %w", err)
		}
		stale = append(stale, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stale receipts: %w", err)
	}

	for _, rec := range stale {
		r.log.Warn("Marked stale processing receipt as failed",
			"receipt_number", rec.ReceiptNumber,
			"external_id", rec.ExternalID,
		)
	}
	return stale, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
