package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/service"
)

type IngestService interface {
	Ingest(ctx context.Context, listID string, records []service.ContactRecord) ([]domain.Contact, error)
}

type ContactHandler struct {
	ingest IngestService
}

func NewContactHandler(ingest IngestService) (*ContactHandler, error) {
	if ingest == nil {
		return nil, fmt.Errorf("ingest service is required")
	}
	return &ContactHandler{ingest: ingest}, nil
}

func RegisterContactRoutes(router fiber.Router, ingest IngestService) error {
	h, err := NewContactHandler(ingest)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/lists/:id/contacts", h.IngestContacts)

	return nil
}

type ingestContactRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	MaxAttempts int    `json:"maxAttempts,omitempty"`
}

type ingestContactsRequest struct {
	Contacts []ingestContactRequest `json:"contacts"`
}

type ingestContactsResponse struct {
	ListID   string            `json:"listId"`
	Accepted int               `json:"accepted"`
	Contacts []contactResponse `json:"contacts"`
}

func (h *ContactHandler) IngestContacts(c *fiber.Ctx) error {
	listID := strings.TrimSpace(c.Params("id"))
	if listID == "" {
		return toHTTPError(fmt.Errorf("%w: list id is required", domain.ErrValidation))
	}

	var req ingestContactsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Contacts) == 0 {
		return toHTTPError(fmt.Errorf("%w: contacts is required", domain.ErrValidation))
	}

	records := make([]service.ContactRecord, 0, len(req.Contacts))
	for _, item := range req.Contacts {
		records = append(records, service.ContactRecord{
			PhoneNumber: item.PhoneNumber,
			FirstName:   item.FirstName,
			LastName:    item.LastName,
			Email:       item.Email,
			MaxAttempts: item.MaxAttempts,
		})
	}

	created, err := h.ingest.Ingest(c.Context(), listID, records)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]contactResponse, 0, len(created))
	for i := range created {
		responses = append(responses, toContactResponse(&created[i]))
	}

	return c.Status(fiber.StatusCreated).JSON(ingestContactsResponse{
		ListID:   listID,
		Accepted: len(created),
		Contacts: responses,
	})
}
