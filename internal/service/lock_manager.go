package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/observability"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultLockTTL      = 5 * time.Minute
	defaultReapInterval = 30 * time.Second
)

// LockManager grants exclusive, time-bounded ownership of contacts to dial
// attempts. Acquisition is a single compare-and-swap against the contact
// store; the reaper loop recovers locks abandoned by crashed attempts.
type LockManager struct {
	contacts repository.ContactRepository
	logger   *zap.Logger
	metrics  *observability.Metrics
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewLockManager(
	contacts repository.ContactRepository,
	ttl time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) (*LockManager, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if interval <= 0 {
		interval = defaultReapInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LockManager{
		contacts: contacts,
		logger:   logger,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}, nil
}

func (m *LockManager) SetMetrics(metrics *observability.Metrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

// Acquire claims the contact for ownerID. Contention and disqualification
// surface as domain.ErrAlreadyLocked / domain.ErrNotEligible without side
// effects; both are expected conditions, not failures.
func (m *LockManager) Acquire(ctx context.Context, contactID, ownerID string) (*domain.Contact, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, fmt.Errorf("%w: contact id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}

	contact, err := m.contacts.AcquireLock(ctx, contactID, ownerID, m.now().UTC())
	if err != nil {
		if m.metrics != nil && (err == domain.ErrAlreadyLocked || err == domain.ErrNotEligible) {
			m.metrics.IncLockContention()
		}
		return nil, err
	}

	return contact, nil
}

// Release clears the lock if ownerID still holds it; a mismatched owner is
// reported as domain.ErrStaleOwner and changes nothing.
func (m *LockManager) Release(ctx context.Context, contactID, ownerID string) error {
	if strings.TrimSpace(contactID) == "" {
		return fmt.Errorf("%w: contact id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}

	return m.contacts.ReleaseLock(ctx, contactID, ownerID)
}

// ReapStale force-releases locks older than the TTL. The swept contacts keep
// their pre-lock status and attempt count: a hung dial attempt is not a
// failed one.
func (m *LockManager) ReapStale(ctx context.Context) (int64, error) {
	cutoff := m.now().UTC().Add(-m.ttl)
	reaped, err := m.contacts.ReleaseStaleLocks(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale locks: %w", err)
	}

	if reaped > 0 {
		m.logger.Warn("released stale contact locks",
			zap.Int64("count", reaped),
			zap.Duration("ttl", m.ttl),
		)
		if m.metrics != nil {
			m.metrics.AddLocksReaped(reaped)
		}
	}

	return reaped, nil
}

// Start runs the reconciliation loop until context cancellation. It is safe
// to run alongside normal acquisition: the cutoff predicate can never match
// a still-fresh lock.
func (m *LockManager) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := m.ReapStale(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("lock reaper initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.ReapStale(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.logger.Error("lock reaper sweep failed", zap.Error(err))
			}
		}
	}
}
