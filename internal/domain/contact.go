package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the dial-eligibility state of a contact.
type Status string

const (
	StatusNotAttempted  Status = "NOT_ATTEMPTED"
	StatusRetryEligible Status = "RETRY_ELIGIBLE"
	StatusNoAnswer      Status = "NO_ANSWER"
	StatusBusy          Status = "BUSY"
	StatusVoicemail     Status = "VOICEMAIL"
	StatusAnswered      Status = "ANSWERED"
	StatusMaxAttempts   Status = "MAX_ATTEMPTS"
	StatusDoNotCall     Status = "DO_NOT_CALL"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusNotAttempted, StatusRetryEligible, StatusNoAnswer, StatusBusy,
		StatusVoicemail, StatusAnswered, StatusMaxAttempts, StatusDoNotCall:
		return true
	}
	return false
}

// IsDialable reports whether a contact in this status may receive a new lock.
func (s Status) IsDialable() bool {
	return s == StatusNotAttempted || s == StatusRetryEligible
}

// IsTerminal reports whether the engine will never dial this status again.
func (s Status) IsTerminal() bool {
	return s == StatusAnswered || s == StatusMaxAttempts || s == StatusDoNotCall
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// DefaultMaxAttempts applies when a contact is ingested without an explicit
// attempt budget.
const DefaultMaxAttempts = 3

// Contact is a dialable record owned by exactly one list. It is the single
// source of truth for dial state; queue entries are projections of it.
type Contact struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	ListID        string `gorm:"type:uuid;not null"`
	PhoneNumber   string `gorm:"type:varchar(20);not null"`
	FirstName     string `gorm:"type:varchar(255)"`
	LastName      string `gorm:"type:varchar(255)"`
	Email         string `gorm:"type:varchar(255)"`
	Status        Status `gorm:"type:varchar(20);not null"`
	AttemptCount  int    `gorm:"not null;default:0"`
	MaxAttempts   int    `gorm:"not null;default:3"`
	Locked        bool   `gorm:"not null;default:false"`
	LockedBy      *string
	LockedAt      *time.Time
	LastOutcome   *Outcome `gorm:"type:varchar(20)"`
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c *Contact) Validate() error {
	if c.ListID == "" {
		return fmt.Errorf("%w: list id is required", ErrValidation)
	}
	if _, err := NormalizePhoneNumber(c.PhoneNumber); err != nil {
		return err
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, c.Status)
	}
	if c.AttemptCount < 0 {
		return fmt.Errorf("%w: attempt count must not be negative", ErrValidation)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be positive", ErrValidation)
	}
	if c.Locked && (c.LockedBy == nil || c.LockedAt == nil) {
		return fmt.Errorf("%w: locked contact requires owner and timestamp", ErrValidation)
	}
	return nil
}

// RetryDue reports whether the contact's retry wait, if any, has elapsed.
func (c *Contact) RetryDue(now time.Time) bool {
	return c.NextRetryAt == nil || !c.NextRetryAt.After(now)
}

// Eligible reports whether the contact qualifies for queue generation at now.
// Suppression is checked separately against the registry, never cached here.
func (c *Contact) Eligible(now time.Time) bool {
	return c.Status.IsDialable() && !c.Locked && c.RetryDue(now)
}
