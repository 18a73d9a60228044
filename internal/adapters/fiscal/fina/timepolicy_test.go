package fina

import (
	"testing"
	"time"
)

func TestTimestampsConvertToLocalTime(t *testing.T) {
	policy := zagrebPolicy(t)

	// Winter, UTC+1.
	winter := time.Date(2025, 1, 15, 11, 30, 5, 0, time.UTC)
	if got := policy.ZKITimestamp(winter); got != "20250115_123005" {
		t.Errorf("winter ZKI timestamp: got %q", got)
	}
	if got := policy.XMLTimestamp(winter); got != "15.01.2025T12:30:05" {
		t.Errorf("winter XML timestamp: got %q", got)
	}

	// Summer, UTC+2.
	summer := time.Date(2025, 7, 15, 11, 30, 5, 0, time.UTC)
	if got := policy.ZKITimestamp(summer); got != "20250715_133005" {
		t.Errorf("summer ZKI timestamp: got %q", got)
	}
	if got := policy.XMLTimestamp(summer); got != "15.07.2025T13:30:05" {
		t.Errorf("summer XML timestamp: got %q", got)
	}
}
