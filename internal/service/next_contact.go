package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/dial-engine/internal/domain"
	"go.uber.org/zap"
)

// nextContactWindow bounds how many queue entries one next-contact request
// walks before reporting an empty queue.
const nextContactWindow = 25

// NextContactService serves pull-style dial requests: one locked contact per
// call, drawn from a fresh generation pass. Used by preview/manual dialing
// agents; the broker-fed dispatch workers cover the push path.
type NextContactService struct {
	generator *QueueGenerator
	locks     *LockManager
	logger    *zap.Logger
}

func NewNextContactService(
	generator *QueueGenerator,
	locks *LockManager,
	logger *zap.Logger,
) (*NextContactService, error) {
	if generator == nil {
		return nil, fmt.Errorf("queue generator is required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NextContactService{
		generator: generator,
		locks:     locks,
		logger:    logger,
	}, nil
}

// Next returns a contact locked for ownerID. With an explicit contactID the
// lock is attempted directly and contention surfaces to the caller;
// otherwise entries are walked in queue order, skipping contacts other
// workers claim first, until one lock sticks or the queue is exhausted.
func (s *NextContactService) Next(ctx context.Context, campaignID, ownerID string, contactID *string) (*domain.Contact, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}

	if contactID != nil && strings.TrimSpace(*contactID) != "" {
		return s.locks.Acquire(ctx, strings.TrimSpace(*contactID), ownerID)
	}

	result, err := s.generator.Generate(ctx, campaignID, nextContactWindow)
	if err != nil {
		return nil, err
	}
	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrQueueEmpty, result.Reason)
	}

	for _, entry := range result.Entries {
		contact, err := s.locks.Acquire(ctx, entry.ContactID, ownerID)
		if err == nil {
			return contact, nil
		}
		if errors.Is(err, domain.ErrAlreadyLocked) || errors.Is(err, domain.ErrNotEligible) || errors.Is(err, domain.ErrNotFound) {
			continue
		}
		return nil, err
	}

	return nil, domain.ErrQueueEmpty
}
