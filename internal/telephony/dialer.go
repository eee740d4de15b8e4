package telephony

import (
	"context"
	"time"

	"github.com/kursadbilgin/dial-engine/internal/domain"
)

// Dialer is the outbound telephony port. The engine only decides which
// contact to hand over; placing the call, DTMF, and recording live behind
// this boundary.
type Dialer interface {
	Dial(ctx context.Context, req DialRequest) (*DialResponse, error)
}

// DialRequest hands a locked contact to the telephony collaborator.
type DialRequest struct {
	CampaignID  string
	ContactID   string
	OwnerID     string
	PhoneNumber string
	DialMethod  domain.DialMethod
}

// DialResponse reports the classified result of a completed dial attempt.
type DialResponse struct {
	Outcome    domain.Outcome
	Duration   time.Duration
	StatusCode int
	Body       string
}
