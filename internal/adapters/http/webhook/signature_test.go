package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func signPayload(t *testing.T, payload []byte, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("valid signature", func(t *testing.T) {
		header := signPayload(t, payload, now)
		if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		err := VerifySignature(payload, "", testSecret, 5*time.Minute, now)
		if !errors.Is(err, ErrMissingSignature) {
			t.Fatalf("expected ErrMissingSignature, got %v", err)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := signPayload(t, payload, now)
		err := VerifySignature([]byte(`{"id":"evt_2"}`), header, testSecret, 5*time.Minute, now)
		if !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := signPayload(t, payload, now)
		err := VerifySignature(payload, header, "other", 5*time.Minute, now)
		if !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := signPayload(t, payload, now.Add(-10*time.Minute))
		err := VerifySignature(payload, header, testSecret, 5*time.Minute, now)
		if !errors.Is(err, ErrStaleTimestamp) {
			t.Fatalf("expected ErrStaleTimestamp, got %v", err)
		}
	})

	t.Run("future timestamp outside tolerance", func(t *testing.T) {
		header := signPayload(t, payload, now.Add(10*time.Minute))
		err := VerifySignature(payload, header, testSecret, 5*time.Minute, now)
		if !errors.Is(err, ErrStaleTimestamp) {
			t.Fatalf("expected ErrStaleTimestamp, got %v", err)
		}
	})

	t.Run("one valid candidate among several", func(t *testing.T) {
		header := signPayload(t, payload, now) + ",v1=deadbeef"
		if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("no v1 entries", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v0=abc", now.Unix())
		err := VerifySignature(payload, header, testSecret, 5*time.Minute, now)
		if !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("zero tolerance disables age check", func(t *testing.T) {
		header := signPayload(t, payload, now.Add(-24*time.Hour))
		if err := VerifySignature(payload, header, testSecret, 0, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
