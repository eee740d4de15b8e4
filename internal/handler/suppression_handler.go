package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/service"
)

type SuppressionService interface {
	Add(ctx context.Context, rawNumber, reason, addedBy string) (*domain.SuppressionEntry, bool, error)
	Import(ctx context.Context, rawNumbers, reason, addedBy string) (*service.ImportSummary, error)
	IsSuppressed(ctx context.Context, rawNumber string) (bool, error)
}

type SuppressionHandler struct {
	service SuppressionService
}

func NewSuppressionHandler(service SuppressionService) (*SuppressionHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("suppression service is required")
	}
	return &SuppressionHandler{service: service}, nil
}

func RegisterSuppressionRoutes(router fiber.Router, service SuppressionService) error {
	h, err := NewSuppressionHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/suppressions", h.AddSuppression)
	v1.Post("/suppressions/import", h.ImportSuppressions)
	v1.Get("/suppressions/:number", h.CheckSuppression)

	return nil
}

type addSuppressionRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Reason      string `json:"reason"`
	AddedBy     string `json:"addedBy"`
}

type addSuppressionResponse struct {
	PhoneNumber string `json:"phoneNumber"`
	Added       bool   `json:"added"`
}

type importSuppressionsRequest struct {
	Numbers string `json:"numbers"`
	Reason  string `json:"reason"`
	AddedBy string `json:"addedBy"`
}

type importSuppressionsResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

func (h *SuppressionHandler) AddSuppression(c *fiber.Ctx) error {
	var req addSuppressionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	entry, added, err := h.service.Add(c.Context(), req.PhoneNumber, req.Reason, req.AddedBy)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusCreated
	if !added {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(addSuppressionResponse{
		PhoneNumber: entry.PhoneNumber,
		Added:       added,
	})
}

// ImportSuppressions accepts either a JSON body with a "numbers" field or a
// raw text body, one number per line either way.
func (h *SuppressionHandler) ImportSuppressions(c *fiber.Ctx) error {
	req := importSuppressionsRequest{}
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	} else {
		req.Numbers = string(c.Body())
	}

	if strings.TrimSpace(req.Numbers) == "" {
		return toHTTPError(fmt.Errorf("%w: numbers is required", domain.ErrValidation))
	}

	summary, err := h.service.Import(c.Context(), req.Numbers, req.Reason, req.AddedBy)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(importSuppressionsResponse{
		Added:   summary.Added,
		Skipped: summary.Skipped,
		Invalid: summary.Invalid,
	})
}

func (h *SuppressionHandler) CheckSuppression(c *fiber.Ctx) error {
	number := strings.TrimSpace(c.Params("number"))
	suppressed, err := h.service.IsSuppressed(c.Context(), number)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"phoneNumber": number,
		"suppressed":  suppressed,
	})
}
