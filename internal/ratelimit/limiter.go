package ratelimit

import "context"

// RateLimiter paces dial attempts per campaign.
type RateLimiter interface {
	Allow(ctx context.Context, campaignID string) (bool, error)
	Wait(ctx context.Context, campaignID string) error
}
