package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the header carrying the payment platform's signature.
const SignatureHeader = "Stripe-Signature"

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrStaleTimestamp   = errors.New("signature timestamp outside tolerance")
	ErrBadSignature     = errors.New("signature mismatch")
)

// VerifySignature checks a payload against the platform's signature scheme:
// the header holds "t=<unix>,v1=<hex>" pairs and the hex value is an
// HMAC-SHA256 of "<unix>.<payload>" under the shared secret. Any one valid
// v1 entry within the timestamp tolerance accepts the payload.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}

	var timestamp int64 = -1
	var candidates []string
	for _, pair := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed signature timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if timestamp < 0 || len(candidates) == 0 {
		return ErrBadSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return ErrStaleTimestamp
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}
