package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/observability"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"go.uber.org/zap"
)

// OutcomeDecision is the contact state resulting from one processed report.
type OutcomeDecision struct {
	ContactID    string
	Status       domain.Status
	AttemptCount int
	NextRetryAt  *time.Time
}

// OutcomeProcessor transitions a locked contact's state from a dial attempt
// report. The transition and the lock release commit as one owner-guarded
// update, so a contact is never left locked after its outcome is recorded.
type OutcomeProcessor struct {
	contacts repository.ContactRepository
	retries  *RetryScheduler
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewOutcomeProcessor(
	contacts repository.ContactRepository,
	retries *RetryScheduler,
	logger *zap.Logger,
) (*OutcomeProcessor, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if retries == nil {
		return nil, fmt.Errorf("retry scheduler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OutcomeProcessor{
		contacts: contacts,
		retries:  retries,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (p *OutcomeProcessor) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// Process applies a dial attempt result. A report whose owner no longer
// holds the lock is rejected as stale (domain.ErrStaleOwner) without
// mutating the contact; the TTL reaper may already have reconciled it.
func (p *OutcomeProcessor) Process(ctx context.Context, result domain.DialAttemptResult) (*OutcomeDecision, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}

	contact, err := p.contacts.GetByID(ctx, result.ContactID)
	if err != nil {
		return nil, err
	}

	if !contact.Locked || contact.LockedBy == nil || *contact.LockedBy != result.OwnerID {
		return nil, domain.ErrStaleOwner
	}

	attemptedAt := result.Timestamp
	if attemptedAt.IsZero() {
		attemptedAt = p.now()
	}
	attemptedAt = attemptedAt.UTC()

	// A contact suppressed while its attempt was in flight keeps DO_NOT_CALL
	// untouched; the in-flight attempt just gives its lock back.
	if contact.Status == domain.StatusDoNotCall {
		return p.releaseSuppressed(ctx, contact, result.OwnerID)
	}

	attemptCount := contact.AttemptCount + 1
	status, nextRetryAt := p.classify(result.Outcome, attemptCount, contact.MaxAttempts, attemptedAt)

	update := repository.OutcomeUpdate{
		ContactID:   contact.ID,
		OwnerID:     result.OwnerID,
		Status:      status,
		Outcome:     result.Outcome,
		AttemptedAt: attemptedAt,
		NextRetryAt: nextRetryAt,
	}
	if err := p.contacts.ApplyOutcome(ctx, update); err != nil {
		// The suppression cascade can land after the status pre-check above;
		// the repository refuses the overwrite and the report falls back to
		// the same release-only path.
		if errors.Is(err, domain.ErrSuppressed) {
			return p.releaseSuppressed(ctx, contact, result.OwnerID)
		}
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.IncOutcomeProcessed(result.Outcome.String())
	}

	p.logger.Info("dial outcome processed",
		zap.String("contactId", contact.ID),
		zap.String("outcome", result.Outcome.String()),
		zap.String("status", status.String()),
		zap.Int("attemptCount", attemptCount),
	)

	return &OutcomeDecision{
		ContactID:    contact.ID,
		Status:       status,
		AttemptCount: attemptCount,
		NextRetryAt:  nextRetryAt,
	}, nil
}

// releaseSuppressed hands back the lock on a contact that went DO_NOT_CALL
// mid-flight without recording the attempt.
func (p *OutcomeProcessor) releaseSuppressed(ctx context.Context, contact *domain.Contact, ownerID string) (*OutcomeDecision, error) {
	if err := p.contacts.ReleaseLock(ctx, contact.ID, ownerID); err != nil {
		return nil, err
	}

	p.logger.Info("outcome discarded for suppressed contact",
		zap.String("contactId", contact.ID),
		zap.String("ownerId", ownerID),
	)

	return &OutcomeDecision{
		ContactID:    contact.ID,
		Status:       domain.StatusDoNotCall,
		AttemptCount: contact.AttemptCount,
	}, nil
}

func (p *OutcomeProcessor) classify(outcome domain.Outcome, attemptCount, maxAttempts int, now time.Time) (domain.Status, *time.Time) {
	switch {
	case outcome.Connected():
		return domain.StatusAnswered, nil
	case outcome.Exhausting():
		return domain.StatusMaxAttempts, nil
	default:
		return p.retries.Schedule(attemptCount, maxAttempts, now)
	}
}
