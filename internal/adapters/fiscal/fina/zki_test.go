package fina

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var zkiPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestComputeZKIShape(t *testing.T) {
	creds := newTestCreds(t)
	policy := zagrebPolicy(t)
	when := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)

	zki, err := ComputeZKI(creds, policy, "12345678901", when, 42, "POSL1", "1", decimal.RequireFromString("25.50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !zkiPattern.MatchString(zki) {
		t.Errorf("ZKI must be 32 lowercase hex characters, got %q", zki)
	}
}

func TestComputeZKIDeterministic(t *testing.T) {
	creds := newTestCreds(t)
	policy := zagrebPolicy(t)
	when := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)
	amount := decimal.RequireFromString("25.50")

	first, err := ComputeZKI(creds, policy, "12345678901", when, 42, "POSL1", "1", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ComputeZKI(creds, policy, "12345678901", when, 42, "POSL1", "1", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("same inputs must yield the same ZKI: %s != %s", first, second)
	}
}

func TestComputeZKISensitivity(t *testing.T) {
	creds := newTestCreds(t)
	policy := zagrebPolicy(t)
	when := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)
	amount := decimal.RequireFromString("25.50")

	base, err := ComputeZKI(creds, policy, "12345678901", when, 42, "POSL1", "1", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	variants := []struct {
		name string
		zki  func() (string, error)
	}{
		{"different oib", func() (string, error) {
			return ComputeZKI(creds, policy, "98765432109", when, 42, "POSL1", "1", amount)
		}},
		{"different time", func() (string, error) {
			return ComputeZKI(creds, policy, "12345678901", when.Add(time.Second), 42, "POSL1", "1", amount)
		}},
		{"different number", func() (string, error) {
			return ComputeZKI(creds, policy, "12345678901", when, 43, "POSL1", "1", amount)
		}},
		{"different location", func() (string, error) {
			return ComputeZKI(creds, policy, "12345678901", when, 42, "POSL2", "1", amount)
		}},
		{"different register", func() (string, error) {
			return ComputeZKI(creds, policy, "12345678901", when, 42, "POSL1", "2", amount)
		}},
		{"different amount", func() (string, error) {
			return ComputeZKI(creds, policy, "12345678901", when, 42, "POSL1", "1", decimal.RequireFromString("25.51"))
		}},
	}

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			zki, err := v.zki()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if zki == base {
				t.Error("changed input must change the ZKI")
			}
		})
	}
}

func TestComputeZKIKeyBound(t *testing.T) {
	policy := zagrebPolicy(t)
	when := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)
	amount := decimal.RequireFromString("25.50")

	first, err := ComputeZKI(newTestCreds(t), policy, "12345678901", when, 42, "POSL1", "1", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ComputeZKI(newTestCreds(t), policy, "12345678901", when, 42, "POSL1", "1", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("different keys must yield different protective codes")
	}
}
