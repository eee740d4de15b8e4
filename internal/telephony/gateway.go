package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/dial-engine/internal/domain"
)

// The gateway blocks until the call attempt terminates, so its timeout must
// cover ring time plus a full conversation.
const defaultGatewayTimeout = 5 * time.Minute

type gatewayRequest struct {
	To         string `json:"to"`
	CampaignID string `json:"campaignId"`
	ContactID  string `json:"contactId"`
	OwnerID    string `json:"ownerId"`
	DialMethod string `json:"dialMethod"`
}

type gatewayResponse struct {
	Outcome         string `json:"outcome"`
	DurationSeconds int    `json:"durationSeconds"`
}

// GatewayDialer hands dial requests to an HTTP telephony gateway and maps
// its reply onto the closed outcome set.
type GatewayDialer struct {
	client   *resty.Client
	endpoint string
}

func NewGatewayDialer(endpoint string) (*GatewayDialer, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewGatewayDialerWithClient(endpoint, client)
}

func NewGatewayDialerWithClient(endpoint string, client *resty.Client) (*GatewayDialer, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("telephony gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid telephony gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &GatewayDialer{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (d *GatewayDialer) Dial(ctx context.Context, req DialRequest) (*DialResponse, error) {
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("dialer is not initialized")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, fmt.Errorf("%w: phone number is required", domain.ErrValidation)
	}

	reqBody := gatewayRequest{
		To:         req.PhoneNumber,
		CampaignID: req.CampaignID,
		ContactID:  req.ContactID,
		OwnerID:    req.OwnerID,
		DialMethod: strings.ToLower(req.DialMethod.String()),
	}

	response, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(d.endpoint)
	if err != nil {
		return nil, &DialerError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &DialerError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &DialerError{
			StatusCode: statusCode,
			Message:    gatewayErrorMessage(statusCode, responseBody),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	var body gatewayResponse
	if err := json.Unmarshal(response.Body(), &body); err != nil {
		return nil, &DialerError{
			StatusCode: statusCode,
			Message:    "gateway returned malformed body",
			Transient:  false,
			Cause:      err,
		}
	}

	outcome, err := domain.ParseOutcomeFromString(body.Outcome)
	if err != nil {
		return nil, &DialerError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("gateway returned unknown outcome %q", body.Outcome),
			Transient:  false,
		}
	}

	return &DialResponse{
		Outcome:    outcome,
		Duration:   time.Duration(body.DurationSeconds) * time.Second,
		StatusCode: statusCode,
		Body:       responseBody,
	}, nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
