package receipt

import (
	"errors"
	"fmt"
)

// FaultClass partitions everything that can go wrong during fiscalization
// into the four categories that decide what happens next.
type FaultClass string

const (
	// FaultValidation is bad input (wrong currency, malformed amount or
	// time). Rejected before a number is consumed, never retried.
	FaultValidation FaultClass = "validation"
	// FaultConfig is broken operator setup (unreadable certificate, wrong
	// passphrase, empty CA directory). Requires intervention, never retried
	// automatically.
	FaultConfig FaultClass = "config"
	// FaultRecoverable is a transient failure (transport timeout, authority
	// service fault). Safe to retry as-is.
	FaultRecoverable FaultClass = "recoverable"
	// FaultAmbiguous is a response that arrived but could not be
	// interpreted. The attempt must not be assumed successful or failed;
	// the record is flagged for manual reconciliation.
	FaultAmbiguous FaultClass = "ambiguous"
)

// Fault is a classified fiscalization error. Code carries the authority's
// error code when one was returned.
type Fault struct {
	Class   FaultClass
	Code    string
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Code != "" {
		return fmt.Sprintf("%s fault [%s]: %s", f.Class, f.Code, f.Message)
	}
	return fmt.Sprintf("%s fault: %s", f.Class, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// Validationf builds a validation fault.
func Validationf(format string, args ...any) *Fault {
	return &Fault{Class: FaultValidation, Message: fmt.Sprintf(format, args...)}
}

// Configf builds a configuration fault wrapping err.
func Configf(err error, format string, args ...any) *Fault {
	return &Fault{Class: FaultConfig, Message: fmt.Sprintf(format, args...), Err: err}
}

// Recoverablef builds a recoverable fault wrapping err.
func Recoverablef(err error, format string, args ...any) *Fault {
	return &Fault{Class: FaultRecoverable, Message: fmt.Sprintf(format, args...), Err: err}
}

// Ambiguousf builds an ambiguous-outcome fault.
func Ambiguousf(format string, args ...any) *Fault {
	return &Fault{Class: FaultAmbiguous, Message: fmt.Sprintf(format, args...)}
}

// ClassOf extracts the fault class from an error chain. Unclassified errors
// default to recoverable: treating an unknown failure as retryable can at
// worst repeat an idempotent attempt, while treating it as fatal would
// strand the record.
func ClassOf(err error) FaultClass {
	var f *Fault
	if errors.As(err, &f) {
		return f.Class
	}
	return FaultRecoverable
}
