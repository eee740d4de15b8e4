package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/service"
)

const (
	defaultQueueWindow = 50
	maxQueueWindow     = 500
)

type QueueService interface {
	Generate(ctx context.Context, campaignID string, maxRecords int) (*service.GenerationResult, error)
}

type NextContactService interface {
	Next(ctx context.Context, campaignID, ownerID string, contactID *string) (*domain.Contact, error)
}

type OutcomeService interface {
	Process(ctx context.Context, result domain.DialAttemptResult) (*service.OutcomeDecision, error)
}

type ContactReader interface {
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
}

type DialHandler struct {
	queue    QueueService
	next     NextContactService
	outcomes OutcomeService
	contacts ContactReader
}

func NewDialHandler(
	queue QueueService,
	next NextContactService,
	outcomes OutcomeService,
	contacts ContactReader,
) (*DialHandler, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue service is required")
	}
	if next == nil {
		return nil, fmt.Errorf("next contact service is required")
	}
	if outcomes == nil {
		return nil, fmt.Errorf("outcome service is required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact reader is required")
	}
	return &DialHandler{queue: queue, next: next, outcomes: outcomes, contacts: contacts}, nil
}

func RegisterDialRoutes(
	router fiber.Router,
	queue QueueService,
	next NextContactService,
	outcomes OutcomeService,
	contacts ContactReader,
) error {
	h, err := NewDialHandler(queue, next, outcomes, contacts)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/campaigns/:id/queue", h.GenerateQueue)
	v1.Post("/campaigns/:id/next", h.NextContact)
	v1.Post("/outcomes", h.ReportOutcome)
	v1.Get("/contacts/:id", h.GetContact)

	return nil
}

type generateQueueRequest struct {
	MaxRecords int `json:"maxRecords"`
}

type generateQueueResponse struct {
	CampaignID string              `json:"campaignId"`
	Entries    []domain.QueueEntry `json:"entries"`
	Reason     string              `json:"reason,omitempty"`
}

type nextContactRequest struct {
	OwnerID   string  `json:"ownerId"`
	ContactID *string `json:"contactId,omitempty"`
}

type reportOutcomeRequest struct {
	ContactID       string     `json:"contactId"`
	OwnerID         string     `json:"ownerId"`
	Outcome         string     `json:"outcome"`
	DurationSeconds int        `json:"durationSeconds"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

type outcomeDecisionResponse struct {
	ContactID    string     `json:"contactId"`
	Status       string     `json:"status"`
	AttemptCount int        `json:"attemptCount"`
	NextRetryAt  *time.Time `json:"nextRetryAt,omitempty"`
}

type contactResponse struct {
	ID            string     `json:"id"`
	ListID        string     `json:"listId"`
	PhoneNumber   string     `json:"phoneNumber"`
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	Email         string     `json:"email,omitempty"`
	Status        string     `json:"status"`
	AttemptCount  int        `json:"attemptCount"`
	MaxAttempts   int        `json:"maxAttempts"`
	Locked        bool       `json:"locked"`
	LockedBy      *string    `json:"lockedBy,omitempty"`
	LockedAt      *time.Time `json:"lockedAt,omitempty"`
	LastOutcome   *string    `json:"lastOutcome,omitempty"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	NextRetryAt   *time.Time `json:"nextRetryAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (h *DialHandler) GenerateQueue(c *fiber.Ctx) error {
	campaignID := strings.TrimSpace(c.Params("id"))
	if campaignID == "" {
		return toHTTPError(fmt.Errorf("%w: campaign id is required", domain.ErrValidation))
	}

	req := generateQueueRequest{MaxRecords: defaultQueueWindow}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.MaxRecords < 1 || req.MaxRecords > maxQueueWindow {
		return toHTTPError(fmt.Errorf("%w: maxRecords must be between 1 and %d", domain.ErrValidation, maxQueueWindow))
	}

	result, err := h.queue.Generate(c.Context(), campaignID, req.MaxRecords)
	if err != nil {
		return toHTTPError(err)
	}

	entries := result.Entries
	if entries == nil {
		entries = []domain.QueueEntry{}
	}

	return c.Status(fiber.StatusOK).JSON(generateQueueResponse{
		CampaignID: result.CampaignID,
		Entries:    entries,
		Reason:     string(result.Reason),
	})
}

func (h *DialHandler) NextContact(c *fiber.Ctx) error {
	campaignID := strings.TrimSpace(c.Params("id"))
	if campaignID == "" {
		return toHTTPError(fmt.Errorf("%w: campaign id is required", domain.ErrValidation))
	}

	var req nextContactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return toHTTPError(fmt.Errorf("%w: ownerId is required", domain.ErrValidation))
	}

	contact, err := h.next.Next(c.Context(), campaignID, strings.TrimSpace(req.OwnerID), req.ContactID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toContactResponse(contact))
}

func (h *DialHandler) ReportOutcome(c *fiber.Ctx) error {
	var req reportOutcomeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	outcome, err := domain.ParseOutcomeFromString(req.Outcome)
	if err != nil {
		return toHTTPError(err)
	}

	timestamp := time.Now().UTC()
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	result := domain.DialAttemptResult{
		ContactID: strings.TrimSpace(req.ContactID),
		OwnerID:   strings.TrimSpace(req.OwnerID),
		Outcome:   outcome,
		Duration:  time.Duration(req.DurationSeconds) * time.Second,
		Timestamp: timestamp,
	}

	decision, err := h.outcomes.Process(c.Context(), result)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(outcomeDecisionResponse{
		ContactID:    decision.ContactID,
		Status:       decision.Status.String(),
		AttemptCount: decision.AttemptCount,
		NextRetryAt:  decision.NextRetryAt,
	})
}

func (h *DialHandler) GetContact(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	contact, err := h.contacts.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toContactResponse(contact))
}

func toContactResponse(contact *domain.Contact) contactResponse {
	var lastOutcome *string
	if contact.LastOutcome != nil {
		s := contact.LastOutcome.String()
		lastOutcome = &s
	}

	return contactResponse{
		ID:            contact.ID,
		ListID:        contact.ListID,
		PhoneNumber:   contact.PhoneNumber,
		FirstName:     contact.FirstName,
		LastName:      contact.LastName,
		Email:         contact.Email,
		Status:        contact.Status.String(),
		AttemptCount:  contact.AttemptCount,
		MaxAttempts:   contact.MaxAttempts,
		Locked:        contact.Locked,
		LockedBy:      contact.LockedBy,
		LockedAt:      contact.LockedAt,
		LastOutcome:   lastOutcome,
		LastAttemptAt: contact.LastAttemptAt,
		NextRetryAt:   contact.NextRetryAt,
		CreatedAt:     contact.CreatedAt,
		UpdatedAt:     contact.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQueueEmpty):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyLocked),
		errors.Is(err, domain.ErrStaleOwner),
		errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrSuppressed),
		errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
