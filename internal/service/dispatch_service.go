package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/observability"
	"github.com/kursadbilgin/dial-engine/internal/queue"
	"github.com/kursadbilgin/dial-engine/internal/ratelimit"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"github.com/kursadbilgin/dial-engine/internal/telephony"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// DispatchService runs the dial-dispatch workers. Each worker drains queue
// entries, claims the contact through the lock manager, hands it to the
// telephony collaborator, and feeds the result to the outcome processor.
// Queue order is a preference only; lock contention makes a worker skip to
// the next entry.
type DispatchService struct {
	contacts     repository.ContactRepository
	campaigns    repository.CampaignRepository
	suppressions repository.SuppressionRepository
	locks        *LockManager
	outcomes     *OutcomeProcessor
	consumer     queue.Consumer
	dialer       telephony.Dialer
	rateLimiter  ratelimit.RateLimiter
	logger       *zap.Logger
	metrics      *observability.Metrics
	concurrency  int
	now          func() time.Time
}

func NewDispatchService(
	contacts repository.ContactRepository,
	campaigns repository.CampaignRepository,
	suppressions repository.SuppressionRepository,
	locks *LockManager,
	outcomes *OutcomeProcessor,
	consumer queue.Consumer,
	dialer telephony.Dialer,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*DispatchService, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("campaign repository is required")
	}
	if suppressions == nil {
		return nil, fmt.Errorf("suppression repository is required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock manager is required")
	}
	if outcomes == nil {
		return nil, fmt.Errorf("outcome processor is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if rateLimiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		contacts:     contacts,
		campaigns:    campaigns,
		suppressions: suppressions,
		locks:        locks,
		outcomes:     outcomes,
		consumer:     consumer,
		dialer:       dialer,
		rateLimiter:  rateLimiter,
		logger:       logger,
		concurrency:  concurrency,
		now:          time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs the worker pool until context cancellation. Loss of the
// contact store is fatal: workers stop requesting new work instead of
// proceeding with stale state.
func (s *DispatchService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatalOnce sync.Once
	var fatalErr error
	fatal := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	g, groupCtx := errgroup.WithContext(runCtx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1
		ownerID := fmt.Sprintf("dialer-%d", workerID)

		g.Go(func() error {
			s.logger.Info("dial worker started",
				zap.Int("workerId", workerID),
				zap.String("ownerId", ownerID),
			)

			handler := func(hctx context.Context, msg queue.DialMessage) error {
				err := s.processEntry(hctx, ownerID, msg)
				if err != nil && isStoreFailure(err) {
					s.logger.Error("contact store unreachable, stopping dispatch",
						zap.Int("workerId", workerID),
						zap.Error(err),
					)
					fatal(err)
				}
				return err
			}

			err := s.consumer.Consume(groupCtx, queue.DialQueueName, handler)
			if err != nil {
				s.logger.Error("dial worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("dial worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return fatalErr
}

func (s *DispatchService) processEntry(ctx context.Context, ownerID string, msg queue.DialMessage) error {
	contact, err := s.contacts.GetByID(ctx, msg.ContactID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("queued contact no longer exists, skipping",
				zap.String("contactId", msg.ContactID),
			)
			return nil
		}
		return storeFailure("failed to load contact: %w", err)
	}

	// Defense in depth: the generator must never emit a suppressed contact.
	// Seeing one here is an integrity violation, not an expected condition.
	suppressed, err := s.suppressions.IsSuppressed(ctx, contact.PhoneNumber)
	if err != nil {
		return storeFailure("suppression check failed: %w", err)
	}
	if suppressed {
		s.logger.Error("integrity violation: suppressed contact reached dispatch",
			zap.String("contactId", contact.ID),
			zap.String("listId", contact.ListID),
		)
		if s.metrics != nil {
			s.metrics.IncIntegrityViolation()
		}
		if _, err := s.contacts.MarkDoNotCallByNumbers(ctx, []string{contact.PhoneNumber}); err != nil {
			return storeFailure("failed to quarantine suppressed contact: %w", err)
		}
		return nil
	}

	campaign, err := s.campaigns.GetByID(ctx, msg.CampaignID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("queued campaign no longer exists, skipping",
				zap.String("campaignId", msg.CampaignID),
				zap.String("contactId", msg.ContactID),
			)
			return nil
		}
		return storeFailure("failed to load campaign: %w", err)
	}

	if err := s.rateLimiter.Wait(ctx, msg.CampaignID); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	locked, err := s.locks.Acquire(ctx, msg.ContactID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyLocked) || errors.Is(err, domain.ErrNotEligible) {
			// Expected contention: another worker won the contact, or its
			// state moved since generation. Ack and take the next entry.
			s.logger.Debug("skipping contested queue entry",
				zap.String("contactId", msg.ContactID),
				zap.String("reason", err.Error()),
			)
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return storeFailure("lock acquisition failed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncDialInFlight()
		defer s.metrics.DecDialInFlight()
	}

	dialStart := s.now()
	response, dialErr := s.dialer.Dial(ctx, telephony.DialRequest{
		CampaignID:  msg.CampaignID,
		ContactID:   locked.ID,
		OwnerID:     ownerID,
		PhoneNumber: locked.PhoneNumber,
		DialMethod:  campaign.DialMethod,
	})
	if s.metrics != nil {
		s.metrics.ObserveDialDuration(s.now().Sub(dialStart))
	}

	if dialErr != nil {
		// No classified outcome came back, so no attempt is consumed; the
		// contact is released for a future generation pass.
		if telephony.IsTransient(dialErr) {
			s.logger.Warn("transient telephony failure, releasing contact",
				zap.String("contactId", locked.ID),
				zap.Error(dialErr),
			)
		} else {
			s.logger.Error("telephony gateway rejected dial",
				zap.String("contactId", locked.ID),
				zap.Error(dialErr),
			)
		}

		if err := s.locks.Release(ctx, locked.ID, ownerID); err != nil && !errors.Is(err, domain.ErrStaleOwner) {
			return storeFailure("failed to release contact after dial error: %w", err)
		}
		return nil
	}

	decision, err := s.outcomes.Process(ctx, domain.DialAttemptResult{
		ContactID: locked.ID,
		OwnerID:   ownerID,
		Outcome:   response.Outcome,
		Duration:  response.Duration,
		Timestamp: s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleOwner) {
			// The TTL reaper reconciled the lock while the call was running.
			s.logger.Warn("outcome discarded: lock was reconciled mid-call",
				zap.String("contactId", locked.ID),
			)
			return nil
		}
		return storeFailure("failed to process outcome: %w", err)
	}

	s.logger.Info("contact dialed",
		zap.String("contactId", decision.ContactID),
		zap.String("outcome", response.Outcome.String()),
		zap.String("status", decision.Status.String()),
	)

	return nil
}

// storeError tags a contact-store failure so the dispatch loop can tell
// infrastructure loss apart from broker or rate-limiter hiccups.
type storeError struct {
	err error
}

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func storeFailure(format string, args ...any) error {
	return &storeError{err: fmt.Errorf(format, args...)}
}

func isStoreFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *storeError
	return errors.As(err, &se)
}
