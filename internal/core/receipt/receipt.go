package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a fiscal receipt.
type Status string

const (
	// StatusPending means a receipt number has been allocated but no
	// fiscalization attempt has started yet.
	StatusPending Status = "pending"
	// StatusProcessing means an attempt is in flight.
	StatusProcessing Status = "processing"
	// StatusCompleted means the tax authority issued a JIR. Terminal.
	StatusCompleted Status = "completed"
	// StatusFailed means the last attempt did not produce a JIR.
	StatusFailed Status = "failed"
)

// IsTerminal reports whether no further attempts will mutate the record
// on their own. Failed records can still be retried manually.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Receipt is the permanent fiscal audit record for one card payment.
// (Year, ReceiptNumber) is unique for all time and never reused, even when
// an attempt fails after consuming the number. Amount, Currency and
// PaymentTime are fixed at creation; only Status, ZKI, JIR and UpdatedAt
// change afterwards.
type Receipt struct {
	ID             int64
	Year           int
	LocationID     string
	RegisterID     string
	ReceiptNumber  int64
	ExternalID     string // payment identifier from the upstream provider, or an operator-supplied one
	OrderID        string
	Amount         decimal.Decimal
	Currency       string
	ZKI            string
	JIR            string
	PaymentTime    time.Time
	Status         Status
	ArchiveFolder  string
	DocumentStatus string // derived PDF render status, tracked independently of fiscalization
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Completed reports whether the authority already issued a JIR for this
// receipt.
func (r *Receipt) Completed() bool {
	return r.Status == StatusCompleted && r.JIR != ""
}
