package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/dial-engine/internal/observability"
	"github.com/kursadbilgin/dial-engine/internal/queue"
	"github.com/kursadbilgin/dial-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultFeedInterval = 5 * time.Second
	defaultFeedLimit    = 100
)

// CampaignFeeder periodically regenerates the dial queue for every active
// campaign and publishes the entries to the broker. Entries are ephemeral
// projections; re-publishing a contact another pass already emitted is
// harmless because the lock manager dedups at dispatch.
type CampaignFeeder struct {
	campaigns repository.CampaignRepository
	generator *QueueGenerator
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	limit     int
}

func NewCampaignFeeder(
	campaigns repository.CampaignRepository,
	generator *QueueGenerator,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*CampaignFeeder, error) {
	if campaigns == nil {
		return nil, fmt.Errorf("campaign repository is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("queue generator is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultFeedInterval
	}
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CampaignFeeder{
		campaigns: campaigns,
		generator: generator,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
	}, nil
}

func (f *CampaignFeeder) SetMetrics(metrics *observability.Metrics) {
	if f == nil {
		return
	}
	f.metrics = metrics
}

func (f *CampaignFeeder) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := f.feedOnce(ctx); err != nil && ctx.Err() == nil {
		f.logger.Error("campaign feeder initial pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.feedOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				f.logger.Error("campaign feeder pass failed", zap.Error(err))
			}
		}
	}
}

func (f *CampaignFeeder) feedOnce(ctx context.Context) error {
	campaigns, err := f.campaigns.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active campaigns: %w", err)
	}

	for i := range campaigns {
		campaign := campaigns[i]

		result, err := f.generator.Generate(ctx, campaign.ID, f.limit)
		if err != nil {
			f.logger.Error("queue generation failed",
				zap.String("campaignId", campaign.ID),
				zap.Error(err),
			)
			continue
		}

		if len(result.Entries) == 0 {
			if result.Reason != ReasonNoEligibleContacts {
				f.logger.Debug("campaign produced no queue entries",
					zap.String("campaignId", campaign.ID),
					zap.String("reason", string(result.Reason)),
				)
			}
			continue
		}

		published := 0
		for _, entry := range result.Entries {
			msg := queue.DialMessage{
				CampaignID: entry.CampaignID,
				ListID:     entry.ListID,
				ContactID:  entry.ContactID,
				Priority:   entry.Priority,
				QueuedAt:   entry.QueuedAt,
			}
			if err := f.publisher.Publish(ctx, queue.DialQueueName, msg); err != nil {
				f.logger.Error("failed to publish queue entry",
					zap.String("campaignId", entry.CampaignID),
					zap.String("contactId", entry.ContactID),
					zap.Error(err),
				)
				continue
			}
			published++
		}

		if f.metrics != nil {
			f.metrics.AddQueueEntriesGenerated(campaign.ID, published)
		}
	}

	return nil
}
