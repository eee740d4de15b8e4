package telephony

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// DialerError classifies telephony gateway failures as transient/permanent.
// A transient failure means the attempt never reached the network and must
// not consume the contact's attempt budget.
type DialerError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *DialerError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "telephony error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *DialerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a dial error should be retried without
// charging an attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var dialerErr *DialerError
	if errors.As(err, &dialerErr) {
		return dialerErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
