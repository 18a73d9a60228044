package testutil

import (
	"context"

	"fiskal/internal/core/archive"
	"fiskal/internal/core/fiscal"
)

// MockProvider is a mock implementation of fiscal.Provider for testing.
type MockProvider struct {
	ProviderName  string
	FiscalizeFunc func(ctx context.Context, req fiscal.Request) (fiscal.Outcome, error)
}

// Name returns the configured provider name, defaulting to "mock".
func (m *MockProvider) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

// Fiscalize calls the mock function if set, otherwise reports completion.
func (m *MockProvider) Fiscalize(ctx context.Context, req fiscal.Request) (fiscal.Outcome, error) {
	if m.FiscalizeFunc != nil {
		return m.FiscalizeFunc(ctx, req)
	}
	return fiscal.Outcome{Result: fiscal.ResultCompleted}, nil
}

// MockArchiver is a mock implementation of archive.Archiver for testing.
type MockArchiver struct {
	SaveFunc func(ctx context.Context, folder string, artifacts ...archive.Artifact) error
	Saved    []archive.Artifact
}

// Save records artifacts and calls the mock function if set.
func (m *MockArchiver) Save(ctx context.Context, folder string, artifacts ...archive.Artifact) error {
	m.Saved = append(m.Saved, artifacts...)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, folder, artifacts...)
	}
	return nil
}
