package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"go.uber.org/zap"
)

// GenerationReason explains an empty generation result.
type GenerationReason string

const (
	ReasonCampaignInactive   GenerationReason = "campaign-inactive"
	ReasonNoListsAttached    GenerationReason = "no-lists-attached"
	ReasonNoEligibleContacts GenerationReason = "no-eligible-contacts"
)

// GenerationResult is one generation pass: an ordered set of ephemeral queue
// entries, or an explicit reason for emptiness.
type GenerationResult struct {
	CampaignID string
	Entries    []domain.QueueEntry
	Reason     GenerationReason
}

// QueueGenerator computes a weighted-prioritized projection of the contacts
// eligible to be dialed next. The output is recomputed from the contact
// store on every call and is never authoritative.
type QueueGenerator struct {
	campaigns repository.CampaignRepository
	contacts  repository.ContactRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewQueueGenerator(
	campaigns repository.CampaignRepository,
	contacts repository.ContactRepository,
	logger *zap.Logger,
) (*QueueGenerator, error) {
	if campaigns == nil {
		return nil, fmt.Errorf("campaign repository is required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueGenerator{
		campaigns: campaigns,
		contacts:  contacts,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// listCursor tracks one attached list through a generation pass. Smooth
// weighted round-robin: every draw adds the list's weight to its credit, the
// highest credit wins the draw, and the winner pays back the total weight of
// the lists still in rotation.
type listCursor struct {
	listID   string
	weight   int
	credit   int
	contacts []domain.Contact
	next     int
}

func (c *listCursor) exhausted() bool {
	return c.next >= len(c.contacts)
}

// Generate produces up to maxRecords entries for a campaign. Given an
// unchanged contact snapshot, two consecutive calls return identical output.
func (g *QueueGenerator) Generate(ctx context.Context, campaignID string, maxRecords int) (*GenerationResult, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}
	if maxRecords < 1 {
		return nil, fmt.Errorf("%w: max records must be positive", domain.ErrValidation)
	}

	campaign, err := g.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: campaign %q", domain.ErrNotFound, campaignID)
		}
		return nil, err
	}

	result := &GenerationResult{CampaignID: campaignID}

	if !campaign.IsActive {
		result.Reason = ReasonCampaignInactive
		return result, nil
	}
	if len(campaign.Lists) == 0 {
		result.Reason = ReasonNoListsAttached
		return result, nil
	}

	now := g.now().UTC()
	cursors := make([]*listCursor, 0, len(campaign.Lists))
	for i := range campaign.Lists {
		list := campaign.Lists[i]
		if list.BlendWeight <= 0 {
			continue
		}

		eligible, err := g.contacts.EligibleByList(ctx, list.ID, now, maxRecords)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot eligible contacts for list %q: %w", list.ID, err)
		}
		if len(eligible) == 0 {
			continue
		}

		cursors = append(cursors, &listCursor{
			listID:   list.ID,
			weight:   list.BlendWeight,
			contacts: eligible,
		})
	}

	if len(cursors) == 0 {
		result.Reason = ReasonNoEligibleContacts
		return result, nil
	}

	result.Entries = g.draw(campaignID, cursors, maxRecords, now)
	if len(result.Entries) == 0 {
		result.Reason = ReasonNoEligibleContacts
	}

	return result, nil
}

func (g *QueueGenerator) draw(campaignID string, cursors []*listCursor, maxRecords int, now time.Time) []domain.QueueEntry {
	entries := make([]domain.QueueEntry, 0, maxRecords)

	for len(entries) < maxRecords && len(cursors) > 0 {
		totalWeight := 0
		for _, c := range cursors {
			totalWeight += c.weight
		}

		// Highest credit wins; ties resolve to the earlier list, which
		// campaign loading orders by list id.
		var winner *listCursor
		for _, c := range cursors {
			c.credit += c.weight
			if winner == nil || c.credit > winner.credit {
				winner = c
			}
		}
		winner.credit -= totalWeight

		contact := winner.contacts[winner.next]
		winner.next++

		entries = append(entries, domain.QueueEntry{
			CampaignID: campaignID,
			ListID:     winner.listID,
			ContactID:  contact.ID,
			Priority:   len(entries),
			QueuedAt:   now,
		})

		if winner.exhausted() {
			// Drop the list; its share redistributes across what remains.
			remaining := cursors[:0]
			for _, c := range cursors {
				if c != winner {
					remaining = append(remaining, c)
				}
			}
			cursors = remaining
		}
	}

	return entries
}
