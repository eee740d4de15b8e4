package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// SuppressionEntry is a normalized number that must never be dialed.
// The set is append-mostly; removal is an administrative action elsewhere.
type SuppressionEntry struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	PhoneNumber string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Reason      string `gorm:"type:varchar(255)"`
	AddedBy     string `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
}

func (e *SuppressionEntry) Validate() error {
	normalized, err := NormalizePhoneNumber(e.PhoneNumber)
	if err != nil {
		return err
	}
	e.PhoneNumber = normalized
	return nil
}

// NormalizePhoneNumber reduces a raw number to its digit form. A leading
// "+" or "00" international prefix is dropped; separators are ignored.
// The result is the canonical key for suppression and contact matching.
func NormalizePhoneNumber(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrValidation)
	}

	trimmed = strings.TrimPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// separator, skip
		default:
			return "", fmt.Errorf("%w: invalid character %q in phone number", ErrValidation, r)
		}
	}

	digits := b.String()
	if strings.HasPrefix(digits, "00") && len(digits) > maxPhoneDigits {
		digits = strings.TrimPrefix(digits, "00")
	}

	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", fmt.Errorf("%w: phone number must have %d-%d digits (got %d)",
			ErrValidation, minPhoneDigits, maxPhoneDigits, len(digits))
	}

	return digits, nil
}
