package queue

import (
	"fmt"
	"strings"
	"time"
)

// DialMessage is the broker payload for one ephemeral queue entry. It is a
// recommendation, not a claim: the contact lock is acquired by the consumer,
// so duplicate or stale deliveries are harmless.
type DialMessage struct {
	CampaignID string    `json:"campaignId"`
	ListID     string    `json:"listId"`
	ContactID  string    `json:"contactId"`
	Priority   int       `json:"priority"`
	QueuedAt   time.Time `json:"queuedAt"`
}

func (m DialMessage) Validate() error {
	if strings.TrimSpace(m.CampaignID) == "" {
		return fmt.Errorf("campaignId is required")
	}
	if strings.TrimSpace(m.ListID) == "" {
		return fmt.Errorf("listId is required")
	}
	if strings.TrimSpace(m.ContactID) == "" {
		return fmt.Errorf("contactId is required")
	}
	if m.Priority < 0 {
		return fmt.Errorf("priority must not be negative")
	}
	return nil
}
