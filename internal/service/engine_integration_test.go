package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// engineFixture wires the generation, locking, and outcome services against
// real gorm repositories so the eligibility SQL and the guarded updates run
// for real instead of being faked.
type engineFixture struct {
	campaigns    *repository.GormCampaignRepo
	contacts     *repository.GormContactRepo
	suppressions *repository.GormSuppressionRepo
	generator    *QueueGenerator
	locks        *LockManager
	processor    *OutcomeProcessor
	suppression  *SuppressionService
	clock        time.Time
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&repository.CampaignModel{},
		&repository.DataListModel{},
		&repository.ContactModel{},
		&repository.SuppressionEntryModel{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &engineFixture{
		campaigns:    repository.NewGormCampaignRepo(db),
		contacts:     repository.NewGormContactRepo(db),
		suppressions: repository.NewGormSuppressionRepo(db),
		clock:        time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	f.generator, err = NewQueueGenerator(f.campaigns, f.contacts, zap.NewNop())
	if err != nil {
		t.Fatalf("NewQueueGenerator() error = %v", err)
	}
	f.locks, err = NewLockManager(f.contacts, 5*time.Minute, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLockManager() error = %v", err)
	}
	f.processor, err = NewOutcomeProcessor(f.contacts, NewRetryScheduler(FixedBackoff{Interval: 15 * time.Minute}), zap.NewNop())
	if err != nil {
		t.Fatalf("NewOutcomeProcessor() error = %v", err)
	}
	f.suppression, err = NewSuppressionService(f.suppressions, f.contacts, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSuppressionService() error = %v", err)
	}

	f.setClock(f.clock)
	return f
}

func (f *engineFixture) setClock(now time.Time) {
	f.clock = now
	f.generator.now = func() time.Time { return now }
	f.locks.now = func() time.Time { return now }
	f.processor.now = func() time.Time { return now }
}

func (f *engineFixture) seedCampaign(t *testing.T, campaignID, listID string) {
	t.Helper()

	campaign := &domain.Campaign{
		ID:         campaignID,
		Name:       "campaign-" + campaignID,
		IsActive:   true,
		DialMethod: domain.DialMethodProgressive,
		Lists: []domain.DataList{
			{ID: listID, CampaignID: &campaignID, Name: "list-" + listID, BlendWeight: 1},
		},
	}
	if err := f.campaigns.Create(context.Background(), campaign); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
}

func (f *engineFixture) seedContact(t *testing.T, id, listID, number string, maxAttempts int) {
	t.Helper()

	c := &domain.Contact{
		ID:          id,
		ListID:      listID,
		PhoneNumber: number,
		Status:      domain.StatusNotAttempted,
		MaxAttempts: maxAttempts,
	}
	if err := f.contacts.Create(context.Background(), c); err != nil {
		t.Fatalf("create contact %s: %v", id, err)
	}
}

func (f *engineFixture) generateIDs(t *testing.T, campaignID string, limit int) []string {
	t.Helper()

	result, err := f.generator.Generate(context.Background(), campaignID, limit)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	ids := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		ids = append(ids, entry.ContactID)
	}
	return ids
}

func (f *engineFixture) dial(t *testing.T, contactID, ownerID string, outcome domain.Outcome) *OutcomeDecision {
	t.Helper()

	ctx := context.Background()
	if _, err := f.locks.Acquire(ctx, contactID, ownerID); err != nil {
		t.Fatalf("Acquire(%s) error = %v", contactID, err)
	}
	decision, err := f.processor.Process(ctx, domain.DialAttemptResult{
		ContactID: contactID,
		OwnerID:   ownerID,
		Outcome:   outcome,
		Timestamp: f.clock,
	})
	if err != nil {
		t.Fatalf("Process(%s) error = %v", contactID, err)
	}
	return decision
}

func assertIDs(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("generation = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("generation = %v, want %v", got, want)
		}
	}
}

func TestEngineLifecycleAgainstRealStore(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	f.seedCampaign(t, "camp-1", "list-1")
	f.seedContact(t, "contact-a", "list-1", "905551110001", 2)
	f.seedContact(t, "contact-b", "list-1", "905551110002", 3)
	f.seedContact(t, "contact-c", "list-1", "905551110003", 1)

	if _, _, err := f.suppression.Add(ctx, "905551110002", "complaint", "admin"); err != nil {
		t.Fatalf("suppression Add() error = %v", err)
	}

	// The suppressed contact must never surface.
	assertIDs(t, f.generateIDs(t, "camp-1", 10), []string{"contact-a", "contact-c"})

	decision := f.dial(t, "contact-a", "agent-1", domain.OutcomeNoAnswer)
	if decision.Status != domain.StatusRetryEligible {
		t.Fatalf("status = %s, want RETRY_ELIGIBLE", decision.Status)
	}
	if decision.AttemptCount != 1 {
		t.Fatalf("attempt count = %d, want 1", decision.AttemptCount)
	}
	if decision.NextRetryAt == nil || !decision.NextRetryAt.After(f.clock) {
		t.Fatalf("next retry = %v, want a future time", decision.NextRetryAt)
	}

	contactA, err := f.contacts.GetByID(ctx, "contact-a")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if contactA.Locked {
		t.Fatal("lock must be released with the outcome")
	}

	// A is waiting out its backoff; only C remains.
	assertIDs(t, f.generateIDs(t, "camp-1", 10), []string{"contact-c"})

	decision = f.dial(t, "contact-c", "agent-1", domain.OutcomeNoAnswer)
	if decision.Status != domain.StatusMaxAttempts {
		t.Fatalf("status = %s, want MAX_ATTEMPTS after final attempt", decision.Status)
	}

	assertIDs(t, f.generateIDs(t, "camp-1", 10), nil)

	// Once A's wait elapses it is the only contact left to draw.
	f.setClock(f.clock.Add(16 * time.Minute))
	assertIDs(t, f.generateIDs(t, "camp-1", 10), []string{"contact-a"})
}

func TestEngineMutualExclusionAgainstRealStore(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	f.seedCampaign(t, "camp-1", "list-1")
	f.seedContact(t, "contact-a", "list-1", "905551110001", 3)

	if _, err := f.locks.Acquire(ctx, "contact-a", "agent-1"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := f.locks.Acquire(ctx, "contact-a", "agent-2"); !errors.Is(err, domain.ErrAlreadyLocked) {
		t.Fatalf("second Acquire() error = %v, want ErrAlreadyLocked", err)
	}

	// A locked contact is invisible to generation.
	assertIDs(t, f.generateIDs(t, "camp-1", 10), nil)
}

func TestEngineSuppressionCascadeAgainstRealStore(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	f.seedCampaign(t, "camp-1", "list-1")
	f.seedContact(t, "contact-a", "list-1", "905551110001", 3)

	if _, err := f.locks.Acquire(ctx, "contact-a", "agent-1"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Suppression lands while the attempt is in flight.
	if _, _, err := f.suppression.Add(ctx, "905551110001", "complaint", "admin"); err != nil {
		t.Fatalf("suppression Add() error = %v", err)
	}

	decision, err := f.processor.Process(ctx, domain.DialAttemptResult{
		ContactID: "contact-a",
		OwnerID:   "agent-1",
		Outcome:   domain.OutcomeNoAnswer,
		Timestamp: f.clock,
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if decision.Status != domain.StatusDoNotCall {
		t.Fatalf("status = %s, want DO_NOT_CALL preserved", decision.Status)
	}

	contact, err := f.contacts.GetByID(ctx, "contact-a")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if contact.Status != domain.StatusDoNotCall {
		t.Fatalf("stored status = %s, DO_NOT_CALL must be one-way", contact.Status)
	}
	if contact.Locked {
		t.Fatal("lock must be handed back for the suppressed contact")
	}
	if contact.AttemptCount != 0 {
		t.Fatalf("attempt count = %d, discarded outcome must not count", contact.AttemptCount)
	}

	assertIDs(t, f.generateIDs(t, "camp-1", 10), nil)
}
