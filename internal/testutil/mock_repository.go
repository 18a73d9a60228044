package testutil

import (
	"context"
	"time"

	"fiskal/internal/core/receipt"
)

// MockRepository is a mock implementation of receipt.Repository for testing.
type MockRepository struct {
	ReserveFunc          func(ctx context.Context, res receipt.Reservation) (*receipt.Receipt, error)
	FindByExternalIDFunc func(ctx context.Context, externalID string) (*receipt.Receipt, error)
	FindByNumberFunc     func(ctx context.Context, receiptNumber int64) (*receipt.Receipt, error)
	MarkProcessingFunc   func(ctx context.Context, id int64) error
	RecordOutcomeFunc    func(ctx context.Context, id int64, zki, jir string, status receipt.Status) error
	CleanupStaleFunc     func(ctx context.Context, maxAge time.Duration) ([]receipt.StaleRecord, error)
}

// Reserve calls the mock function if set, otherwise returns not found.
func (m *MockRepository) Reserve(ctx context.Context, res receipt.Reservation) (*receipt.Receipt, error) {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, res)
	}
	return nil, receipt.ErrNotFound
}

// FindByExternalID calls the mock function if set, otherwise returns not found.
func (m *MockRepository) FindByExternalID(ctx context.Context, externalID string) (*receipt.Receipt, error) {
	if m.FindByExternalIDFunc != nil {
		return m.FindByExternalIDFunc(ctx, externalID)
	}
	return nil, receipt.ErrNotFound
}

// FindByNumber calls the mock function if set, otherwise returns not found.
func (m *MockRepository) FindByNumber(ctx context.Context, receiptNumber int64) (*receipt.Receipt, error) {
	if m.FindByNumberFunc != nil {
		return m.FindByNumberFunc(ctx, receiptNumber)
	}
	return nil, receipt.ErrNotFound
}

// MarkProcessing calls the mock function if set, otherwise succeeds.
func (m *MockRepository) MarkProcessing(ctx context.Context, id int64) error {
	if m.MarkProcessingFunc != nil {
		return m.MarkProcessingFunc(ctx, id)
	}
	return nil
}

// RecordOutcome calls the mock function if set, otherwise succeeds.
func (m *MockRepository) RecordOutcome(ctx context.Context, id int64, zki, jir string, status receipt.Status) error {
	if m.RecordOutcomeFunc != nil {
		return m.RecordOutcomeFunc(ctx, id, zki, jir, status)
	}
	return nil
}

// CleanupStale calls the mock function if set, otherwise returns empty slice.
func (m *MockRepository) CleanupStale(ctx context.Context, maxAge time.Duration) ([]receipt.StaleRecord, error) {
	if m.CleanupStaleFunc != nil {
		return m.CleanupStaleFunc(ctx, maxAge)
	}
	return []receipt.StaleRecord{}, nil
}
