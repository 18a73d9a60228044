package receipt

import (
	"errors"
	"fmt"
	"testing"
)

func TestFaultConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class FaultClass
	}{
		{"validation", Validationf("amount must be positive"), FaultValidation},
		{"config", Configf(errors.New("no such file"), "reading bundle"), FaultConfig},
		{"recoverable", Recoverablef(errors.New("timeout"), "sending request"), FaultRecoverable},
		{"ambiguous", Ambiguousf("unparseable response"), FaultAmbiguous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ClassOf(tt.err) != tt.class {
				t.Errorf("ClassOf = %s, want %s", ClassOf(tt.err), tt.class)
			}
		})
	}
}

func TestFaultUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	fault := Recoverablef(cause, "sending to authority")

	if !errors.Is(fault, cause) {
		t.Error("fault must unwrap to its cause")
	}

	wrapped := fmt.Errorf("attempt 2: %w", fault)
	var f *Fault
	if !errors.As(wrapped, &f) {
		t.Fatal("fault must survive further wrapping")
	}
	if f.Class != FaultRecoverable {
		t.Errorf("unexpected class %s", f.Class)
	}
}

func TestClassOfDefaultsToRecoverable(t *testing.T) {
	if got := ClassOf(errors.New("something else")); got != FaultRecoverable {
		t.Errorf("unclassified errors default to recoverable, got %s", got)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if !StatusCompleted.IsTerminal() {
		t.Error("completed is terminal")
	}
	for _, s := range []Status{StatusPending, StatusProcessing, StatusFailed} {
		if s.IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}
