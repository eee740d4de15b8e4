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

const maxIngestBatch = 10_000

// ContactRecord is one already-validated row handed over by the ingestion
// collaborator. Display fields are opaque to the engine.
type ContactRecord struct {
	PhoneNumber string
	FirstName   string
	LastName    string
	Email       string
	MaxAttempts int
}

// IngestService admits contact records into the store. A batch containing
// any record without a dialable number is rejected whole, never partially
// admitted. Records whose number is already on the suppression list are
// admitted directly as DO_NOT_CALL so they can never be dialed.
type IngestService struct {
	contacts           repository.ContactRepository
	campaigns          repository.CampaignRepository
	suppressions       repository.SuppressionRepository
	logger             *zap.Logger
	defaultMaxAttempts int
}

func NewIngestService(
	contacts repository.ContactRepository,
	campaigns repository.CampaignRepository,
	suppressions repository.SuppressionRepository,
	logger *zap.Logger,
) (*IngestService, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("campaign repository is required")
	}
	if suppressions == nil {
		return nil, fmt.Errorf("suppression repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IngestService{
		contacts:           contacts,
		campaigns:          campaigns,
		suppressions:       suppressions,
		logger:             logger,
		defaultMaxAttempts: domain.DefaultMaxAttempts,
	}, nil
}

// SetDefaultMaxAttempts overrides the attempt cap applied to records that
// do not carry their own. Values below one are ignored.
func (s *IngestService) SetDefaultMaxAttempts(n int) {
	if s == nil || n < 1 {
		return
	}
	s.defaultMaxAttempts = n
}

func (s *IngestService) Ingest(ctx context.Context, listID string, records []ContactRecord) ([]domain.Contact, error) {
	if strings.TrimSpace(listID) == "" {
		return nil, fmt.Errorf("%w: list id is required", domain.ErrValidation)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: batch must include at least one contact", domain.ErrValidation)
	}
	if len(records) > maxIngestBatch {
		return nil, fmt.Errorf("%w: batch size exceeds %d", domain.ErrValidation, maxIngestBatch)
	}

	if _, err := s.campaigns.GetListByID(ctx, strings.TrimSpace(listID)); err != nil {
		return nil, err
	}

	normalized := make([]string, len(records))
	for i, record := range records {
		number, err := domain.NormalizePhoneNumber(record.PhoneNumber)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		normalized[i] = number
	}

	suppressed, err := s.suppressedNumbers(ctx, normalized)
	if err != nil {
		return nil, err
	}

	contacts := make([]domain.Contact, len(records))
	contactPtrs := make([]*domain.Contact, len(records))
	for i, record := range records {
		maxAttempts := record.MaxAttempts
		if maxAttempts < 1 {
			maxAttempts = s.defaultMaxAttempts
		}

		status := domain.StatusNotAttempted
		if suppressed[normalized[i]] {
			status = domain.StatusDoNotCall
		}

		contacts[i] = domain.Contact{
			ID:          uuid.NewString(),
			ListID:      strings.TrimSpace(listID),
			PhoneNumber: normalized[i],
			FirstName:   strings.TrimSpace(record.FirstName),
			LastName:    strings.TrimSpace(record.LastName),
			Email:       strings.TrimSpace(record.Email),
			Status:      status,
			MaxAttempts: maxAttempts,
		}
		if err := contacts[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		contactPtrs[i] = &contacts[i]
	}

	if err := s.contacts.CreateBatch(ctx, contactPtrs); err != nil {
		return nil, err
	}

	s.logger.Info("contacts ingested",
		zap.String("listId", listID),
		zap.Int("count", len(contacts)),
		zap.Int("suppressed", len(suppressed)),
	)

	return contacts, nil
}

// suppressedNumbers resolves which of the batch's numbers are on the
// suppression list, keyed for the admission pass.
func (s *IngestService) suppressedNumbers(ctx context.Context, numbers []string) (map[string]bool, error) {
	unique := make([]string, 0, len(numbers))
	seen := make(map[string]struct{}, len(numbers))
	for _, number := range numbers {
		if _, ok := seen[number]; ok {
			continue
		}
		seen[number] = struct{}{}
		unique = append(unique, number)
	}

	listed, err := s.suppressions.ListNumbers(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("suppression lookup failed: %w", err)
	}

	suppressed := make(map[string]bool, len(listed))
	for _, number := range listed {
		suppressed[number] = true
	}
	return suppressed, nil
}
