// Package fiscalization sequences a payment through number allocation, the
// fiscal provider and the receipt lifecycle. It is the only writer of
// receipt state; every other component is a pure function over data this
// service supplies.
package fiscalization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fiskal/internal/core/archive"
	"fiskal/internal/core/fiscal"
	"fiskal/internal/core/receipt"

	"github.com/shopspring/decimal"
)

// PaymentInput is a confirmed payment to fiscalize.
type PaymentInput struct {
	ExternalID    string
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	PaymentTime   time.Time
	ArchiveFolder string
}

// Result is the single outcome surfaced to callers. Internal errors never
// travel here; only the coarse state plus the fault classification needed
// to decide on a retry.
type Result struct {
	ReceiptNumber int64
	Year          int
	Status        receipt.Status
	ZKI           string
	JIR           string
	FaultClass    receipt.FaultClass
	FaultCode     string
	Idempotent    bool // an earlier call already owns this payment
}

// Service implements the fiscalize and retry operations. Both the HTTP
// webhook and the operator CLI consume the same two methods.
type Service struct {
	repo       receipt.Repository
	registry   *fiscal.Registry
	provider   string
	archiver   archive.Archiver
	currency   string
	locationID string
	registerID string
	location   *time.Location
	log        *slog.Logger
}

// Options wires the service. Archiver may be nil (archival disabled).
type Options struct {
	Repository receipt.Repository
	Registry   *fiscal.Registry
	Provider   string // active fiscal-system variant name
	Archiver   archive.Archiver
	Currency   string // the single accepted settlement currency
	LocationID string
	RegisterID string
	Location   *time.Location
	Logger     *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.Archiver == nil {
		opts.Archiver = archive.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		repo:       opts.Repository,
		registry:   opts.Registry,
		provider:   opts.Provider,
		archiver:   opts.Archiver,
		currency:   strings.ToUpper(opts.Currency),
		locationID: opts.LocationID,
		registerID: opts.RegisterID,
		location:   opts.Location,
		log:        opts.Logger,
	}
}

// Fiscalize handles a fresh payment: validate, allocate, attempt. A
// payment that already has a record answers idempotently from that record
// instead of allocating a second number.
func (s *Service) Fiscalize(ctx context.Context, in PaymentInput) (Result, error) {
	if err := s.validate(in); err != nil {
		return Result{}, err
	}

	year := in.PaymentTime.In(s.location).Year()
	rec, err := s.repo.Reserve(ctx, receipt.Reservation{
		Year:          year,
		LocationID:    s.locationID,
		RegisterID:    s.registerID,
		ExternalID:    in.ExternalID,
		OrderID:       in.OrderID,
		Amount:        in.Amount,
		Currency:      s.currency,
		PaymentTime:   in.PaymentTime,
		ArchiveFolder: in.ArchiveFolder,
	})
	if errors.Is(err, receipt.ErrDuplicatePayment) {
		existing, lookupErr := s.repo.FindByExternalID(ctx, in.ExternalID)
		if lookupErr != nil {
			return Result{}, fmt.Errorf("looking up duplicate payment: %w", lookupErr)
		}
		s.log.Info("Payment already has a receipt",
			"external_id", in.ExternalID,
			"receipt_number", existing.ReceiptNumber,
			"status", existing.Status,
		)
		res := resultFrom(existing)
		res.Idempotent = true
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}

	s.log.Info("Starting fiscalization",
		"external_id", in.ExternalID,
		"receipt_number", rec.ReceiptNumber,
		"year", rec.Year,
	)
	return s.attempt(ctx, rec, rec.ArchiveFolder)
}

// Retry re-runs fiscalization for an existing failed or stuck record,
// reusing its receipt number, amount and payment time verbatim. Completed
// records are refused. artifactFolder names where this attempt's documents
// are archived; empty reuses the record's original folder.
func (s *Service) Retry(ctx context.Context, receiptNumber int64, artifactFolder string) (Result, error) {
	rec, err := s.repo.FindByNumber(ctx, receiptNumber)
	if err != nil {
		return Result{}, fmt.Errorf("receipt %d: %w", receiptNumber, err)
	}

	if rec.Completed() {
		return Result{}, receipt.Validationf("receipt %d already completed with JIR %s", receiptNumber, rec.JIR)
	}

	if err := s.repo.MarkProcessing(ctx, rec.ID); err != nil {
		if errors.Is(err, receipt.ErrAlreadyCompleted) {
			return Result{}, receipt.Validationf("receipt %d already completed", receiptNumber)
		}
		return Result{}, err
	}

	if artifactFolder == "" {
		artifactFolder = rec.ArchiveFolder
	}

	s.log.Info("Retrying fiscalization",
		"receipt_number", rec.ReceiptNumber,
		"previous_status", rec.Status,
	)
	return s.attempt(ctx, rec, artifactFolder)
}

// CleanupStale surfaces stuck processing records as failed. Invoked from
// the health endpoint and the CLI only; the engine never resubmits on its
// own.
func (s *Service) CleanupStale(ctx context.Context, maxAge time.Duration) ([]receipt.StaleRecord, error) {
	return s.repo.CleanupStale(ctx, maxAge)
}

// FindByNumber exposes a read-only lookup for the operation surfaces.
func (s *Service) FindByNumber(ctx context.Context, receiptNumber int64) (*receipt.Receipt, error) {
	return s.repo.FindByNumber(ctx, receiptNumber)
}

// Currency returns the single accepted settlement currency.
func (s *Service) Currency() string { return s.currency }

// attempt runs one provider exchange and persists the transition it
// decides. State is written immediately after each decisive step so a
// crash leaves an inspectable record.
func (s *Service) attempt(ctx context.Context, rec *receipt.Receipt, artifactFolder string) (Result, error) {
	provider, err := s.registry.Lookup(s.provider)
	if err != nil {
		return Result{}, receipt.Configf(err, "resolving fiscal provider")
	}

	out, attemptErr := provider.Fiscalize(ctx, fiscal.Request{
		Year:          rec.Year,
		ReceiptNumber: rec.ReceiptNumber,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		PaymentTime:   rec.PaymentTime,
		ArchiveFolder: artifactFolder,
	})

	// Hand artifacts to the archival collaborator regardless of how the
	// attempt ended. Archival failure is logged, never propagated.
	if len(out.Artifacts) > 0 {
		if archiveErr := s.archiver.Save(ctx, artifactFolder, out.Artifacts...); archiveErr != nil {
			s.log.Warn("Artifact archival failed, fiscalization state unaffected",
				"receipt_number", rec.ReceiptNumber,
				"error", archiveErr,
			)
		}
	}

	res := Result{
		ReceiptNumber: rec.ReceiptNumber,
		Year:          rec.Year,
		ZKI:           out.ZKI,
	}

	status := receipt.StatusFailed
	switch {
	case attemptErr != nil:
		res.FaultClass = receipt.ClassOf(attemptErr)
		s.log.Error("Fiscalization attempt failed",
			"receipt_number", rec.ReceiptNumber,
			"fault_class", res.FaultClass,
			"error", attemptErr,
		)
	case out.Result == fiscal.ResultCompleted:
		status = receipt.StatusCompleted
		res.JIR = out.JIR
	case out.Result == fiscal.ResultAmbiguous:
		res.FaultClass = receipt.FaultAmbiguous
		res.FaultCode = out.FaultCode
	case out.Result == fiscal.ResultUnavailable:
		res.FaultClass = receipt.FaultRecoverable
		res.FaultCode = out.FaultCode
	default:
		res.FaultClass = receipt.FaultValidation
		res.FaultCode = out.FaultCode
	}
	res.Status = status

	if err := s.repo.RecordOutcome(ctx, rec.ID, out.ZKI, res.JIR, status); err != nil {
		if errors.Is(err, receipt.ErrAlreadyCompleted) {
			// A racing attempt already recorded success; report that state
			// rather than overwriting or contradicting it.
			existing, lookupErr := s.repo.FindByNumber(ctx, rec.ReceiptNumber)
			if lookupErr != nil {
				return Result{}, lookupErr
			}
			return resultFrom(existing), nil
		}
		// The exchange may have succeeded while the update failed. Log
		// loudly for manual intervention; the record stays processing.
		s.log.Error("ORPHANED RECEIPT: outcome not persisted, manual intervention required",
			"receipt_number", rec.ReceiptNumber,
			"external_id", rec.ExternalID,
			"intended_status", status,
			"jir", res.JIR,
			"error", err,
		)
		return Result{}, fmt.Errorf("persisting receipt outcome: %w", err)
	}

	return res, nil
}

func (s *Service) validate(in PaymentInput) error {
	if strings.TrimSpace(in.ExternalID) == "" {
		return receipt.Validationf("payment identifier is required")
	}
	if !strings.EqualFold(strings.TrimSpace(in.Currency), s.currency) {
		return receipt.Validationf("fiscalization only supports %s currency, received %q", s.currency, in.Currency)
	}
	if !in.Amount.IsPositive() {
		return receipt.Validationf("amount must be positive, received %s", in.Amount)
	}
	if in.PaymentTime.IsZero() {
		return receipt.Validationf("payment time is required")
	}
	return nil
}

func resultFrom(rec *receipt.Receipt) Result {
	return Result{
		ReceiptNumber: rec.ReceiptNumber,
		Year:          rec.Year,
		Status:        rec.Status,
		ZKI:           rec.ZKI,
		JIR:           rec.JIR,
	}
}
