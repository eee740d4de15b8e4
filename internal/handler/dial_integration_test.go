package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/dial-engine/internal/domain"
	"github.com/kursadbilgin/dial-engine/internal/service"
	"github.com/kursadbilgin/dial-engine/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestDialIntegration_GenerateQueue(t *testing.T) {
	t.Parallel()

	queuedAt, _ := time.Parse(time.RFC3339, "2026-02-01T12:00:00Z")
	queue := &stubQueueService{
		generateFn: func(ctx context.Context, campaignID string, maxRecords int) (*service.GenerationResult, error) {
			if campaignID != "camp-1" {
				return nil, domain.ErrNotFound
			}
			if maxRecords != 50 {
				t.Fatalf("maxRecords = %d, want default 50", maxRecords)
			}
			return &service.GenerationResult{
				CampaignID: "camp-1",
				Entries: []domain.QueueEntry{
					{CampaignID: "camp-1", ListID: "list-a", ContactID: "contact-1", Priority: 0, QueuedAt: queuedAt},
					{CampaignID: "camp-1", ListID: "list-b", ContactID: "contact-2", Priority: 1, QueuedAt: queuedAt},
				},
			}, nil
		},
	}

	app := newDialTestApp(t, queue, &stubNextContactService{}, &stubOutcomeService{}, &stubContactReader{})

	resp, body := performRequest(t, app, http.MethodPost, "/v1/campaigns/camp-1/queue", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		CampaignID string              `json:"campaignId"`
		Entries    []domain.QueueEntry `json:"entries"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.CampaignID != "camp-1" {
		t.Fatalf("campaignId = %q, want camp-1", parsed.CampaignID)
	}
	if len(parsed.Entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(parsed.Entries))
	}
	if parsed.Entries[0].ContactID != "contact-1" || parsed.Entries[0].Priority != 0 {
		t.Fatalf("entries[0] = %+v, want contact-1 at priority 0", parsed.Entries[0])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/camp-missing/queue", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown campaign", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/camp-1/queue", `{"maxRecords":501}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for maxRecords over limit", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/camp-1/queue", `{"maxRecords":-1}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for negative maxRecords", resp.StatusCode)
	}
}

func TestDialIntegration_GenerateQueueEmptyResult(t *testing.T) {
	t.Parallel()

	queue := &stubQueueService{
		generateFn: func(ctx context.Context, campaignID string, maxRecords int) (*service.GenerationResult, error) {
			return &service.GenerationResult{
				CampaignID: campaignID,
				Reason:     service.ReasonCampaignInactive,
			}, nil
		},
	}

	app := newDialTestApp(t, queue, &stubNextContactService{}, &stubOutcomeService{}, &stubContactReader{})

	resp, body := performRequest(t, app, http.MethodPost, "/v1/campaigns/camp-paused/queue", `{"maxRecords":10}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["reason"] != string(service.ReasonCampaignInactive) {
		t.Fatalf("reason = %v, want %s", parsed["reason"], service.ReasonCampaignInactive)
	}
	entries, ok := parsed["entries"].([]any)
	if !ok {
		t.Fatalf("entries = %v, want empty array", parsed["entries"])
	}
	if len(entries) != 0 {
		t.Fatalf("entries len = %d, want 0", len(entries))
	}
}

func TestDialIntegration_NextContact(t *testing.T) {
	t.Parallel()

	lockedBy := "agent-7"
	next := &stubNextContactService{
		nextFn: func(ctx context.Context, campaignID, ownerID string, contactID *string) (*domain.Contact, error) {
			if campaignID == "camp-empty" {
				return nil, domain.ErrQueueEmpty
			}
			if contactID != nil && *contactID == "contact-taken" {
				return nil, domain.ErrAlreadyLocked
			}
			if ownerID != "agent-7" {
				t.Fatalf("ownerID = %q, want agent-7", ownerID)
			}
			return &domain.Contact{
				ID:          "contact-1",
				ListID:      "list-a",
				PhoneNumber: "905551112233",
				Status:      domain.StatusNotAttempted,
				MaxAttempts: 3,
				Locked:      true,
				LockedBy:    &lockedBy,
			}, nil
		},
	}

	app := newDialTestApp(t, &stubQueueService{}, next, &stubOutcomeService{}, &stubContactReader{})

	resp, body := performRequest(t, app, http.MethodPost, "/v1/campaigns/camp-1/next", `{"ownerId":"agent-7"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["id"] != "contact-1" {
		t.Fatalf("id = %v, want contact-1", parsed["id"])
	}
	if parsed["locked"] != true {
		t.Fatalf("locked = %v, want true", parsed["locked"])
	}
	if parsed["lockedBy"] != "agent-7" {
		t.Fatalf("lockedBy = %v, want agent-7", parsed["lockedBy"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/camp-1/next", `{"ownerId":""}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing ownerId", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/camp-empty/next", `{"ownerId":"agent-7"}`)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for empty queue", resp.StatusCode)
	}

	resp, _ = performRequest(
		t,
		app,
		http.MethodPost,
		"/v1/campaigns/camp-1/next",
		`{"ownerId":"agent-7","contactId":"contact-taken"}`,
	)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 for contested contact", resp.StatusCode)
	}
}

func TestDialIntegration_ReportOutcome(t *testing.T) {
	t.Parallel()

	reportedAt, _ := time.Parse(time.RFC3339, "2026-02-01T12:05:00Z")
	nextRetryAt := reportedAt.Add(15 * time.Minute)

	outcomes := &stubOutcomeService{
		processFn: func(ctx context.Context, result domain.DialAttemptResult) (*service.OutcomeDecision, error) {
			if result.OwnerID == "agent-stale" {
				return nil, domain.ErrStaleOwner
			}
			if result.Outcome != domain.OutcomeNoAnswer {
				t.Fatalf("outcome = %s, want NO_ANSWER", result.Outcome)
			}
			if !result.Timestamp.Equal(reportedAt) {
				t.Fatalf("timestamp = %v, want %v", result.Timestamp, reportedAt)
			}
			return &service.OutcomeDecision{
				ContactID:    result.ContactID,
				Status:       domain.StatusRetryEligible,
				AttemptCount: 1,
				NextRetryAt:  &nextRetryAt,
			}, nil
		},
	}

	app := newDialTestApp(t, &stubQueueService{}, &stubNextContactService{}, outcomes, &stubContactReader{})

	validBody := `{"contactId":"contact-1","ownerId":"agent-7","outcome":"NO_ANSWER","durationSeconds":0,"timestamp":"2026-02-01T12:05:00Z"}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/outcomes", validBody)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["status"] != domain.StatusRetryEligible.String() {
		t.Fatalf("status = %v, want %s", parsed["status"], domain.StatusRetryEligible)
	}
	if parsed["attemptCount"] != float64(1) {
		t.Fatalf("attemptCount = %v, want 1", parsed["attemptCount"])
	}
	if parsed["nextRetryAt"] == nil {
		t.Fatal("nextRetryAt missing from response")
	}

	invalidOutcomeBody := `{"contactId":"contact-1","ownerId":"agent-7","outcome":"TELEPORTED"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/outcomes", invalidOutcomeBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown outcome", resp.StatusCode)
	}

	staleBody := `{"contactId":"contact-1","ownerId":"agent-stale","outcome":"NO_ANSWER","timestamp":"2026-02-01T12:05:00Z"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/outcomes", staleBody)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 for stale owner", resp.StatusCode)
	}
}

func TestDialIntegration_GetContact(t *testing.T) {
	t.Parallel()

	contacts := &stubContactReader{
		getByIDFn: func(ctx context.Context, id string) (*domain.Contact, error) {
			if id != "contact-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Contact{
				ID:          "contact-1",
				ListID:      "list-a",
				PhoneNumber: "905551112233",
				Status:      domain.StatusAnswered,
				MaxAttempts: 3,
			}, nil
		},
	}

	app := newDialTestApp(t, &stubQueueService{}, &stubNextContactService{}, &stubOutcomeService{}, contacts)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/contacts/contact-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["status"] != domain.StatusAnswered.String() {
		t.Fatalf("status = %v, want %s", parsed["status"], domain.StatusAnswered)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/contacts/contact-missing", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown contact", resp.StatusCode)
	}
}

func TestSuppressionIntegration_AddAndCheck(t *testing.T) {
	t.Parallel()

	svc := &stubSuppressionService{
		addFn: func(ctx context.Context, rawNumber, reason, addedBy string) (*domain.SuppressionEntry, bool, error) {
			entry := &domain.SuppressionEntry{PhoneNumber: "905551112233", Reason: reason, AddedBy: addedBy}
			if rawNumber == "dup" {
				return entry, false, nil
			}
			if rawNumber == "bogus" {
				return nil, false, domain.ErrValidation
			}
			return entry, true, nil
		},
		isSuppressedFn: func(ctx context.Context, rawNumber string) (bool, error) {
			return rawNumber == "905551112233", nil
		},
	}

	app := newSuppressionTestApp(t, svc)

	resp, body := performRequest(
		t,
		app,
		http.MethodPost,
		"/v1/suppressions",
		`{"phoneNumber":"+90 555 111 22 33","reason":"customer request","addedBy":"agent-7"}`,
	)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["phoneNumber"] != "905551112233" {
		t.Fatalf("phoneNumber = %v, want 905551112233", parsed["phoneNumber"])
	}
	if parsed["added"] != true {
		t.Fatalf("added = %v, want true", parsed["added"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/suppressions", `{"phoneNumber":"dup"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 for duplicate", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/suppressions", `{"phoneNumber":"bogus"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid number", resp.StatusCode)
	}

	resp, body = performRequest(t, app, http.MethodGet, "/v1/suppressions/905551112233", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	parsed = map[string]any{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["suppressed"] != true {
		t.Fatalf("suppressed = %v, want true", parsed["suppressed"])
	}
}

func TestSuppressionIntegration_Import(t *testing.T) {
	t.Parallel()

	svc := &stubSuppressionService{
		importFn: func(ctx context.Context, rawNumbers, reason, addedBy string) (*service.ImportSummary, error) {
			lines := 0
			for _, line := range strings.Split(rawNumbers, "\n") {
				if strings.TrimSpace(line) != "" {
					lines++
				}
			}
			return &service.ImportSummary{Added: lines, Skipped: 0, Invalid: 0}, nil
		},
	}

	app := newSuppressionTestApp(t, svc)

	jsonBody := `{"numbers":"905551112233\n905551112234","reason":"regulator list","addedBy":"compliance"}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/suppressions/import", jsonBody)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["added"] != float64(2) {
		t.Fatalf("added = %v, want 2", parsed["added"])
	}

	req := httptest.NewRequest(
		http.MethodPost,
		"/v1/suppressions/import",
		bytes.NewBufferString("905551112233\n905551112234\n905551112235\n"),
	)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
	rawResp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	rawBody, err := io.ReadAll(rawResp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = rawResp.Body.Close()

	if rawResp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rawResp.StatusCode, string(rawBody))
	}
	parsed = map[string]any{}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["added"] != float64(3) {
		t.Fatalf("added = %v, want 3", parsed["added"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/suppressions/import", `{"numbers":"  "}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for blank import", resp.StatusCode)
	}
}

func TestContactIntegration_Ingest(t *testing.T) {
	t.Parallel()

	ingest := &stubIngestService{
		ingestFn: func(ctx context.Context, listID string, records []service.ContactRecord) ([]domain.Contact, error) {
			if listID != "list-1" {
				return nil, domain.ErrNotFound
			}
			created := make([]domain.Contact, 0, len(records))
			for i, record := range records {
				created = append(created, domain.Contact{
					ID:          "contact-" + string(rune('a'+i)),
					ListID:      listID,
					PhoneNumber: record.PhoneNumber,
					Status:      domain.StatusNotAttempted,
					MaxAttempts: 3,
				})
			}
			return created, nil
		},
	}

	app := newContactTestApp(t, ingest)

	validBody := `{"contacts":[{"phoneNumber":"905551112233","firstName":"Ada"},{"phoneNumber":"905551112234"}]}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/lists/list-1/contacts", validBody)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		ListID   string           `json:"listId"`
		Accepted int              `json:"accepted"`
		Contacts []map[string]any `json:"contacts"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.ListID != "list-1" {
		t.Fatalf("listId = %q, want list-1", parsed.ListID)
	}
	if parsed.Accepted != 2 || len(parsed.Contacts) != 2 {
		t.Fatalf("accepted = %d, contacts = %d, want 2 and 2", parsed.Accepted, len(parsed.Contacts))
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/lists/list-missing/contacts", validBody)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown list", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/lists/list-1/contacts", `{"contacts":[]}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty batch", resp.StatusCode)
	}
}

func TestHealthIntegration_HealthzAndReadyz(t *testing.T) {
	t.Parallel()

	t.Run("healthz returns 200", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sql.OpenDB(stubConnector{}), newStubRedisClient(nil))

		resp, body := performRequest(t, app, http.MethodGet, "/healthz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 when dependencies healthy", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(nil)
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when dependencies down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{pingErr: errors.New("postgres down")})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(errors.New("redis down"))
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}

		var parsed struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			t.Fatalf("json unmarshal error = %v", err)
		}
		if parsed.Status != "not_ready" {
			t.Fatalf("status = %q, want not_ready", parsed.Status)
		}
		if parsed.Checks["postgres"] != "down" || parsed.Checks["redis"] != "down" {
			t.Fatalf("checks = %v, want both down", parsed.Checks)
		}
	})
}

type stubQueueService struct {
	generateFn func(ctx context.Context, campaignID string, maxRecords int) (*service.GenerationResult, error)
}

func (s *stubQueueService) Generate(ctx context.Context, campaignID string, maxRecords int) (*service.GenerationResult, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, campaignID, maxRecords)
	}
	return nil, errors.New("not implemented")
}

type stubNextContactService struct {
	nextFn func(ctx context.Context, campaignID, ownerID string, contactID *string) (*domain.Contact, error)
}

func (s *stubNextContactService) Next(ctx context.Context, campaignID, ownerID string, contactID *string) (*domain.Contact, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, campaignID, ownerID, contactID)
	}
	return nil, errors.New("not implemented")
}

type stubOutcomeService struct {
	processFn func(ctx context.Context, result domain.DialAttemptResult) (*service.OutcomeDecision, error)
}

func (s *stubOutcomeService) Process(ctx context.Context, result domain.DialAttemptResult) (*service.OutcomeDecision, error) {
	if s.processFn != nil {
		return s.processFn(ctx, result)
	}
	return nil, errors.New("not implemented")
}

type stubContactReader struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Contact, error)
}

func (s *stubContactReader) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type stubSuppressionService struct {
	addFn          func(ctx context.Context, rawNumber, reason, addedBy string) (*domain.SuppressionEntry, bool, error)
	importFn       func(ctx context.Context, rawNumbers, reason, addedBy string) (*service.ImportSummary, error)
	isSuppressedFn func(ctx context.Context, rawNumber string) (bool, error)
}

func (s *stubSuppressionService) Add(ctx context.Context, rawNumber, reason, addedBy string) (*domain.SuppressionEntry, bool, error) {
	if s.addFn != nil {
		return s.addFn(ctx, rawNumber, reason, addedBy)
	}
	return nil, false, errors.New("not implemented")
}

func (s *stubSuppressionService) Import(ctx context.Context, rawNumbers, reason, addedBy string) (*service.ImportSummary, error) {
	if s.importFn != nil {
		return s.importFn(ctx, rawNumbers, reason, addedBy)
	}
	return nil, errors.New("not implemented")
}

func (s *stubSuppressionService) IsSuppressed(ctx context.Context, rawNumber string) (bool, error) {
	if s.isSuppressedFn != nil {
		return s.isSuppressedFn(ctx, rawNumber)
	}
	return false, nil
}

type stubIngestService struct {
	ingestFn func(ctx context.Context, listID string, records []service.ContactRecord) ([]domain.Contact, error)
}

func (s *stubIngestService) Ingest(ctx context.Context, listID string, records []service.ContactRecord) ([]domain.Contact, error) {
	if s.ingestFn != nil {
		return s.ingestFn(ctx, listID, records)
	}
	return nil, errors.New("not implemented")
}

func newDialTestApp(
	t *testing.T,
	queue QueueService,
	next NextContactService,
	outcomes OutcomeService,
	contacts ContactReader,
) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterDialRoutes(app, queue, next, outcomes, contacts); err != nil {
		t.Fatalf("RegisterDialRoutes() error = %v", err)
	}

	return app
}

func newSuppressionTestApp(t *testing.T, svc SuppressionService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterSuppressionRoutes(app, svc); err != nil {
		t.Fatalf("RegisterSuppressionRoutes() error = %v", err)
	}

	return app
}

func newContactTestApp(t *testing.T, ingest IngestService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterContactRoutes(app, ingest); err != nil {
		t.Fatalf("RegisterContactRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func newStubRedisClient(pingErr error) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	client.AddHook(stubRedisHook{pingErr: pingErr})
	return client
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") {
			if h.pingErr != nil {
				cmd.SetErr(h.pingErr)
				return h.pingErr
			}
			cmd.SetErr(nil)
			return nil
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}
