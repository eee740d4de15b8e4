package service

import (
	"time"

	"github.com/kursadbilgin/dial-engine/internal/domain"
)

const (
	defaultRetryBase = 15 * time.Minute
	defaultRetryMax  = 4 * time.Hour
)

// BackoffPolicy computes the wait before a contact may be dialed again.
// Implementations must be monotonically non-decreasing in attemptCount.
type BackoffPolicy interface {
	Delay(attemptCount int) time.Duration
}

// FixedBackoff waits the same interval after every attempt.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Delay(attemptCount int) time.Duration {
	if b.Interval <= 0 {
		return defaultRetryBase
	}
	return b.Interval
}

// ExponentialBackoff doubles the base per attempt up to a cap.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(attemptCount int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = defaultRetryBase
	}
	max := b.Max
	if max <= 0 {
		max = defaultRetryMax
	}

	delay := base
	for i := 1; i < attemptCount; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// RetryScheduler decides, after a non-connecting outcome, between another
// attempt and exhaustion.
type RetryScheduler struct {
	backoff BackoffPolicy
}

func NewRetryScheduler(backoff BackoffPolicy) *RetryScheduler {
	if backoff == nil {
		backoff = ExponentialBackoff{Base: defaultRetryBase, Max: defaultRetryMax}
	}
	return &RetryScheduler{backoff: backoff}
}

// Schedule returns the contact's next status and retry time given that
// attemptCount attempts (including the one just finished) have been made.
// nextRetryAt is nil when the budget is exhausted.
func (s *RetryScheduler) Schedule(attemptCount, maxAttempts int, now time.Time) (domain.Status, *time.Time) {
	if maxAttempts < 1 {
		maxAttempts = domain.DefaultMaxAttempts
	}

	if attemptCount >= maxAttempts {
		return domain.StatusMaxAttempts, nil
	}

	next := now.Add(s.backoff.Delay(attemptCount))
	return domain.StatusRetryEligible, &next
}
