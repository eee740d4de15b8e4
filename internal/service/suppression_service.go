package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"go.uber.org/zap"
)

const maxImportSize = 100_000

// ImportSummary reports a bulk suppression import.
type ImportSummary struct {
	Added   int
	Skipped int
	Invalid int
}

// SuppressionService manages the do-not-call registry. Every add cascades
// DO_NOT_CALL onto matching contacts; the transition is one-way.
type SuppressionService struct {
	suppressions repository.SuppressionRepository
	contacts     repository.ContactRepository
	logger       *zap.Logger
}

func NewSuppressionService(
	suppressions repository.SuppressionRepository,
	contacts repository.ContactRepository,
	logger *zap.Logger,
) (*SuppressionService, error) {
	if suppressions == nil {
		return nil, fmt.Errorf("suppression repository is required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SuppressionService{
		suppressions: suppressions,
		contacts:     contacts,
		logger:       logger,
	}, nil
}

// IsSuppressed checks a raw number against the current registry.
func (s *SuppressionService) IsSuppressed(ctx context.Context, rawNumber string) (bool, error) {
	normalized, err := domain.NormalizePhoneNumber(rawNumber)
	if err != nil {
		return false, err
	}
	return s.suppressions.IsSuppressed(ctx, normalized)
}

// Add registers one number. Adding an already-present number is a no-op
// that reports added=false without error.
func (s *SuppressionService) Add(ctx context.Context, rawNumber, reason, addedBy string) (*domain.SuppressionEntry, bool, error) {
	normalized, err := domain.NormalizePhoneNumber(rawNumber)
	if err != nil {
		return nil, false, err
	}

	entry := &domain.SuppressionEntry{
		ID:          uuid.NewString(),
		PhoneNumber: normalized,
		Reason:      strings.TrimSpace(reason),
		AddedBy:     strings.TrimSpace(addedBy),
	}

	added, err := s.suppressions.Add(ctx, entry)
	if err != nil {
		return nil, false, err
	}

	if _, err := s.contacts.MarkDoNotCallByNumbers(ctx, []string{normalized}); err != nil {
		return nil, false, fmt.Errorf("failed to cascade do-not-call status: %w", err)
	}

	return entry, added, nil
}

// Import parses a newline-delimited list of raw numbers sharing one reason.
// Valid numbers are normalized and deduplicated; the summary counts what was
// added, what already existed, and what failed normalization.
func (s *SuppressionService) Import(ctx context.Context, rawNumbers, reason, addedBy string) (*ImportSummary, error) {
	lines := strings.Split(rawNumbers, "\n")
	if len(lines) > maxImportSize {
		return nil, fmt.Errorf("%w: import exceeds %d lines", domain.ErrValidation, maxImportSize)
	}

	reason = strings.TrimSpace(reason)
	addedBy = strings.TrimSpace(addedBy)

	summary := &ImportSummary{}
	seen := make(map[string]struct{}, len(lines))
	entries := make([]domain.SuppressionEntry, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		normalized, err := domain.NormalizePhoneNumber(line)
		if err != nil {
			summary.Invalid++
			continue
		}
		if _, dup := seen[normalized]; dup {
			summary.Skipped++
			continue
		}
		seen[normalized] = struct{}{}

		entries = append(entries, domain.SuppressionEntry{
			ID:          uuid.NewString(),
			PhoneNumber: normalized,
			Reason:      reason,
			AddedBy:     addedBy,
		})
	}

	if len(entries) == 0 {
		return summary, nil
	}

	added, err := s.suppressions.AddBatch(ctx, entries)
	if err != nil {
		return nil, err
	}
	summary.Added = int(added)
	summary.Skipped += len(entries) - int(added)

	numbers := make([]string, 0, len(entries))
	for i := range entries {
		numbers = append(numbers, entries[i].PhoneNumber)
	}
	flipped, err := s.contacts.MarkDoNotCallByNumbers(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to cascade do-not-call status: %w", err)
	}

	s.logger.Info("suppression import completed",
		zap.Int("added", summary.Added),
		zap.Int("skipped", summary.Skipped),
		zap.Int("invalid", summary.Invalid),
		zap.Int64("contactsFlipped", flipped),
	)

	return summary, nil
}
