package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/dial-engine/internal/domain"
	"gorm.io/gorm"
)

// OutcomeUpdate is the single-statement mutation applied when a dial attempt
// reports back. The lock clear and the state transition commit together.
type OutcomeUpdate struct {
	ContactID   string
	OwnerID     string
	Status      domain.Status
	Outcome     domain.Outcome
	AttemptedAt time.Time
	NextRetryAt *time.Time
}

type ContactRepository interface {
	Create(ctx context.Context, c *domain.Contact) error
	CreateBatch(ctx context.Context, contacts []*domain.Contact) error
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
	EligibleByList(ctx context.Context, listID string, now time.Time, limit int) ([]domain.Contact, error)
	AcquireLock(ctx context.Context, contactID, ownerID string, now time.Time) (*domain.Contact, error)
	ReleaseLock(ctx context.Context, contactID, ownerID string) error
	ReleaseStaleLocks(ctx context.Context, cutoff time.Time) (int64, error)
	ApplyOutcome(ctx context.Context, update OutcomeUpdate) error
	MarkDoNotCallByNumbers(ctx context.Context, numbers []string) (int64, error)
}

var dialableStatuses = []domain.Status{
	domain.StatusNotAttempted,
	domain.StatusRetryEligible,
}

type GormContactRepo struct {
	db *gorm.DB
}

func NewGormContactRepo(db *gorm.DB) *GormContactRepo {
	return &GormContactRepo{db: db}
}

func (r *GormContactRepo) Create(ctx context.Context, c *domain.Contact) error {
	model := contactModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *contactModelToDomain(model)
	}
	return nil
}

func (r *GormContactRepo) CreateBatch(ctx context.Context, contacts []*domain.Contact) error {
	models := make([]ContactModel, 0, len(contacts))
	modelIndexes := make([]int, 0, len(contacts))
	for i, c := range contacts {
		model := contactModelFromDomain(c)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 500).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(contacts) && contacts[idx] != nil {
			*contacts[idx] = *contactModelToDomain(&models[i])
		}
	}

	return nil
}

func (r *GormContactRepo) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	var model ContactModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return contactModelToDomain(&model), nil
}

// EligibleByList returns the list's dialable contacts in draw order:
// never-attempted contacts first, then by retry due time, id as tiebreak.
// Suppression is re-checked against the registry on every call, never
// cached on the contact row.
func (r *GormContactRepo) EligibleByList(ctx context.Context, listID string, now time.Time, limit int) ([]domain.Contact, error) {
	var models []ContactModel
	err := r.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Where("locked = ?", false).
		Where("status IN ?", dialableStatuses).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Where("NOT EXISTS (SELECT 1 FROM suppression_entries se WHERE se.phone_number = contacts.phone_number)").
		Order("CASE WHEN status = 'NOT_ATTEMPTED' THEN 0 ELSE 1 END").
		Order("next_retry_at ASC NULLS FIRST").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	contacts := make([]domain.Contact, 0, len(models))
	for i := range models {
		contacts = append(contacts, *contactModelToDomain(&models[i]))
	}

	return contacts, nil
}

// AcquireLock is the single concurrency-critical path: a conditional update
// that only succeeds against an unlocked, dialable contact whose campaign is
// still active. Two workers racing here can never both see RowsAffected == 1.
func (r *GormContactRepo) AcquireLock(ctx context.Context, contactID, ownerID string, now time.Time) (*domain.Contact, error) {
	result := r.db.WithContext(ctx).
		Model(&ContactModel{}).
		Where("id = ? AND locked = ? AND status IN ?", contactID, false, dialableStatuses).
		Where(`EXISTS (
			SELECT 1 FROM data_lists dl
			JOIN campaigns ca ON ca.id = dl.campaign_id
			WHERE dl.id = contacts.list_id AND ca.is_active)`).
		Updates(map[string]any{
			"locked":    true,
			"locked_by": ownerID,
			"locked_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return nil, r.classifyAcquireFailure(ctx, contactID)
	}

	return r.GetByID(ctx, contactID)
}

func (r *GormContactRepo) classifyAcquireFailure(ctx context.Context, contactID string) error {
	contact, err := r.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if contact.Locked {
		return domain.ErrAlreadyLocked
	}
	return domain.ErrNotEligible
}

func (r *GormContactRepo) ReleaseLock(ctx context.Context, contactID, ownerID string) error {
	result := r.db.WithContext(ctx).
		Model(&ContactModel{}).
		Where("id = ? AND locked = ? AND locked_by = ?", contactID, true, ownerID).
		Updates(map[string]any{
			"locked":    false,
			"locked_by": nil,
			"locked_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStaleOwner
	}
	return nil
}

// ReleaseStaleLocks clears locks held past the TTL. The pre-lock status is
// untouched and attempt_count does not move: a crashed dial attempt is not a
// failed attempt. The cutoff predicate cannot race a fresh lock.
func (r *GormContactRepo) ReleaseStaleLocks(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ContactModel{}).
		Where("locked = ? AND locked_at < ?", true, cutoff).
		Updates(map[string]any{
			"locked":    false,
			"locked_by": nil,
			"locked_at": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ApplyOutcome commits the attempt bookkeeping and releases the lock in one
// owner-guarded statement. The status guard keeps DO_NOT_CALL one-way even
// when a suppression cascade lands between the dial and the outcome report.
// A zero row count is disambiguated with a re-read: the owner still holding
// a DO_NOT_CALL contact gets ErrSuppressed, everything else is a stale owner
// whose result must be discarded.
func (r *GormContactRepo) ApplyOutcome(ctx context.Context, update OutcomeUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&ContactModel{}).
		Where(
			"id = ? AND locked = ? AND locked_by = ? AND status <> ?",
			update.ContactID, true, update.OwnerID, domain.StatusDoNotCall,
		).
		Updates(map[string]any{
			"status":          update.Status,
			"last_outcome":    update.Outcome,
			"last_attempt_at": update.AttemptedAt,
			"next_retry_at":   update.NextRetryAt,
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"locked":          false,
			"locked_by":       nil,
			"locked_at":       nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		contact, err := r.GetByID(ctx, update.ContactID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrStaleOwner
			}
			return err
		}
		if contact.Status == domain.StatusDoNotCall &&
			contact.Locked && contact.LockedBy != nil && *contact.LockedBy == update.OwnerID {
			return domain.ErrSuppressed
		}
		return domain.ErrStaleOwner
	}
	return nil
}

// MarkDoNotCallByNumbers flips every contact matching a suppressed number to
// DO_NOT_CALL. One-way: nothing ever transitions out of it. In-flight locks
// are left to finish; the status flip blocks any further acquisition.
func (r *GormContactRepo) MarkDoNotCallByNumbers(ctx context.Context, numbers []string) (int64, error) {
	if len(numbers) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&ContactModel{}).
		Where("phone_number IN ? AND status <> ?", numbers, domain.StatusDoNotCall).
		Updates(map[string]any{
			"status":        domain.StatusDoNotCall,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
