package receipt

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no receipt matches the lookup.
	ErrNotFound = errors.New("receipt not found")
	// ErrDuplicatePayment is returned when a receipt already exists for the
	// external payment identifier. The caller answers idempotently from the
	// existing record.
	ErrDuplicatePayment = errors.New("receipt already exists for payment")
	// ErrNumberConflict is returned when a concurrent insert lost the race
	// on the (year, receipt_number) constraint. Distinct from a data fault:
	// the submission itself is fine, only the allocation collided.
	ErrNumberConflict = errors.New("receipt number already taken")
	// ErrAlreadyCompleted is returned when a mutation would touch a
	// completed record. Completed is terminal and immutable.
	ErrAlreadyCompleted = errors.New("receipt already completed")
)

// Reservation is the input for allocating a receipt number and creating the
// initial row in one durable step.
type Reservation struct {
	Year          int
	LocationID    string
	RegisterID    string
	ExternalID    string
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	PaymentTime   time.Time
	ArchiveFolder string
}

// StaleRecord identifies a processing record flipped to failed by cleanup.
type StaleRecord struct {
	ReceiptNumber int64
	ExternalID    string
}

// Repository is the single owner of persistent receipt state. The atomic
// number allocation and the (year, receipt_number) uniqueness are enforced
// by the store, not in process, because independent workers call
// concurrently.
type Repository interface {
	// Reserve allocates the next receipt number and inserts the row with
	// status processing, both in one statement. Returns
	// ErrDuplicatePayment when ExternalID already has a record.
	Reserve(ctx context.Context, res Reservation) (*Receipt, error)

	// FindByExternalID looks a receipt up by its upstream payment
	// identifier. Returns ErrNotFound when absent.
	FindByExternalID(ctx context.Context, externalID string) (*Receipt, error)

	// FindByNumber looks a receipt up by receipt number. Returns
	// ErrNotFound when absent.
	FindByNumber(ctx context.Context, number int64) (*Receipt, error)

	// MarkProcessing moves a failed or stuck-processing record back to
	// processing for a retry. Returns ErrAlreadyCompleted for completed
	// records.
	MarkProcessing(ctx context.Context, id int64) error

	// RecordOutcome writes the attempt result. ZKI is stored when computed
	// even on failure; JIR only on success. A completed record is never
	// overwritten (ErrAlreadyCompleted).
	RecordOutcome(ctx context.Context, id int64, zki, jir string, status Status) error

	// CleanupStale flips processing records older than maxAge to failed and
	// returns their identities for the operator log. Never called from a
	// background timer inside the engine.
	CleanupStale(ctx context.Context, maxAge time.Duration) ([]StaleRecord, error)
}
