package domain

import (
	"fmt"
	"strings"
	"time"
)

// DialMethod selects the dispatch policy consumed by the dial loop.
type DialMethod string

const (
	DialMethodRatio       DialMethod = "RATIO"
	DialMethodPredictive  DialMethod = "PREDICTIVE"
	DialMethodPreview     DialMethod = "PREVIEW"
	DialMethodProgressive DialMethod = "PROGRESSIVE"
)

func (m DialMethod) String() string { return string(m) }

func (m DialMethod) IsValid() bool {
	switch m {
	case DialMethodRatio, DialMethodPredictive, DialMethodPreview, DialMethodProgressive:
		return true
	}
	return false
}

func ParseDialMethodFromString(s string) (DialMethod, error) {
	m := DialMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid dial method %q", ErrValidation, s)
	}
	return m, nil
}

// Campaign groups lists to be dialed together. List blend weights are
// relative shares, not percentages; they need not sum to 100.
type Campaign struct {
	ID         string     `gorm:"type:uuid;primaryKey"`
	Name       string     `gorm:"type:varchar(255);not null"`
	IsActive   bool       `gorm:"not null;default:false"`
	DialMethod DialMethod `gorm:"type:varchar(20);not null"`
	Lists      []DataList `gorm:"foreignKey:CampaignID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Campaign) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: campaign name is required", ErrValidation)
	}
	if !c.DialMethod.IsValid() {
		return fmt.Errorf("%w: invalid dial method %q", ErrValidation, c.DialMethod)
	}
	return nil
}

// DataList is a named partition of contacts. A list detached from any
// campaign is never queued; weight zero keeps it attached but excluded.
type DataList struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	CampaignID  *string `gorm:"type:uuid"`
	Name        string  `gorm:"type:varchar(255);not null"`
	BlendWeight int     `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (l *DataList) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: list name is required", ErrValidation)
	}
	if l.BlendWeight < 0 {
		return fmt.Errorf("%w: blend weight must not be negative", ErrValidation)
	}
	return nil
}

// QueueEntry is an ephemeral, regenerable dial recommendation. It never
// outlives one generation pass and is never persisted as source of truth.
type QueueEntry struct {
	CampaignID string    `json:"campaignId"`
	ListID     string    `json:"listId"`
	ContactID  string    `json:"contactId"`
	Priority   int       `json:"priority"`
	QueuedAt   time.Time `json:"queuedAt"`
}
