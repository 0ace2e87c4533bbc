package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/justsurfingit/Placement-Tracker/internal/auth"
	"github.com/justsurfingit/Placement-Tracker/internal/database"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret-with-enough-length!!"

var handlerNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type stubExtractor struct {
	candidate models.Candidate
}

func (s stubExtractor) Extract(ctx context.Context, emailText, hint string) (models.Candidate, error) {
	c := s.candidate
	if hint != "" {
		c.CompanyName = hint
	}
	return c, nil
}

type testServer struct {
	router *gin.Engine
	store  *database.MemoryStore
}

func newTestServer(t *testing.T, extractor services.Extractor, extractLimit int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := database.NewMemoryStore()
	svc := services.NewPlacementService(store, extractor, auth.ContextIdentity{}, time.UTC, nil)
	svc.Now = func() time.Time { return handlerNow }
	verifier, err := auth.NewJWTVerifier(testSecret, "")
	require.NoError(t, err)

	ph := NewPlacementHandler(svc, services.ExportOptions{DateLayout: services.DefaultExportDateLayout}, 7, nil)
	ph.Now = func() time.Time { return handlerNow }
	ih := NewInboxHandler(newInboxForTest(svc), svc, nil)

	router := NewRouter(RouterConfig{
		Placements:   ph,
		Inbox:        ih,
		Verifier:     verifier,
		Limiter:      NewMemoryLimiter(),
		ExtractLimit: extractLimit,
	})
	return &testServer{router: router, store: store}
}

func newInboxForTest(svc *services.PlacementService) *services.InboxService {
	return services.NewInboxService(nil, database.NewMemoryInboxState(), svc, services.NewMatcherService(), nil)
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: userID, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type placementBody struct {
	ID                  string `json:"id"`
	CompanyName         string `json:"company_name"`
	Status              string `json:"status"`
	EligibilityConflict bool   `json:"eligibility_conflict"`
	ProgressStage       string `json:"progress_stage"`
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := newTestServer(t, nil, 10)
	w := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil, 10)
	w := s.do(t, http.MethodGet, "/api/v1/placements", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode[errorEnvelope](t, w).Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/placements", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlacementLifecycle(t *testing.T) {
	s := newTestServer(t, nil, 10)

	w := s.do(t, http.MethodPost, "/api/v1/placements", "u1", gin.H{
		"company_name":     "Acme",
		"ctc":              12,
		"location":         "Pune",
		"are_you_eligible": "No",
		"status":           "Applied",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[placementBody](t, w)
	assert.Equal(t, "Not Eligible", created.Status)
	assert.False(t, created.EligibilityConflict)

	w = s.do(t, http.MethodPatch, "/api/v1/placements/"+created.ID+"/status", "u1", gin.H{"status": "Selected"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invariant_violation", decode[errorEnvelope](t, w).Error.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/placements/"+created.ID+"/eligibility", "u1", gin.H{"are_you_eligible": "Yes"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Applied", decode[placementBody](t, w).Status)

	w = s.do(t, http.MethodPatch, "/api/v1/placements/"+created.ID+"/status", "u1", gin.H{"status": "Selected"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Complete", decode[placementBody](t, w).ProgressStage)

	// Other users cannot see it.
	w = s.do(t, http.MethodGet, "/api/v1/placements/"+created.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/placements/"+created.ID, "u1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/placements/"+created.ID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateValidation(t *testing.T) {
	s := newTestServer(t, nil, 10)
	w := s.do(t, http.MethodPost, "/api/v1/placements", "u1", gin.H{"role": "SDE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode[errorEnvelope](t, w)
	assert.Equal(t, "validation", env.Error.Code)
	assert.Equal(t, "required", env.Error.Fields["CompanyName"])

	w = s.do(t, http.MethodPost, "/api/v1/placements", "u1", gin.H{"company_name": "Acme", "ctc": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func seed(t *testing.T, s *testServer, owner string, records ...models.Placement) {
	t.Helper()
	for _, p := range records {
		p.OwnerID = owner
		_, err := s.store.Create(context.Background(), p)
		require.NoError(t, err)
	}
}

func record(id, company string, status models.Status, ctc float64) models.Placement {
	p := models.NewPlacement()
	p.ID = id
	p.CompanyName = company
	p.Status = status
	p.CTC = &ctc
	p.CreatedAt = handlerNow.Add(-time.Hour)
	return p
}

func TestListFiltersAndSorts(t *testing.T) {
	s := newTestServer(t, nil, 10)
	seed(t, s, "u1",
		record("a", "Acme", models.StatusApplied, 12),
		record("b", "Globex", models.StatusInProgress, 20),
		record("c", "Initech", models.StatusRejected, 6),
	)

	w := s.do(t, http.MethodGet, "/api/v1/placements?status=applied&status=In+Progress&ctc_min=10&sort=ctc&order=desc", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		Placements []placementBody `json:"placements"`
	}](t, w)
	require.Len(t, got.Placements, 2)
	assert.Equal(t, "b", got.Placements[0].ID)
	assert.Equal(t, "a", got.Placements[1].ID)

	w = s.do(t, http.MethodGet, "/api/v1/placements?ctc_min=lots&sort=salary&has_test=maybe", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[errorEnvelope](t, w).Error.Fields
	assert.Contains(t, fields, "ctc_min")
	assert.Contains(t, fields, "sort")
	assert.Contains(t, fields, "has_test")
}

func TestBoardAndStats(t *testing.T) {
	s := newTestServer(t, nil, 10)
	seed(t, s, "u1", record("a", "Acme", models.StatusApplied, 12), record("b", "Globex", models.StatusSelected, 20))

	w := s.do(t, http.MethodGet, "/api/v1/placements/board", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[struct {
		Columns []struct {
			Status     string          `json:"status"`
			Placements []placementBody `json:"placements"`
		} `json:"columns"`
	}](t, w)
	assert.Len(t, board.Columns, len(models.Statuses))

	w = s.do(t, http.MethodGet, "/api/v1/placements/stats", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[services.Stats](t, w)
	assert.Equal(t, 2, stats.Total)
	require.NotNil(t, stats.AverageCTC)
	assert.Equal(t, 16.0, *stats.AverageCTC)
}

func TestUpcoming(t *testing.T) {
	s := newTestServer(t, nil, 10)
	p := record("a", "Acme", models.StatusApplied, 12)
	p.Eligible = models.EligibilityYes
	p.Tests[0] = models.RoundSlot{Description: "OA", Date: models.NewDate(2025, 6, 3), Result: models.ResultPending}
	p.Interviews[0] = models.RoundSlot{Description: "HR", Date: models.NewDate(2025, 6, 20), Result: models.ResultPending}
	seed(t, s, "u1", p)

	w := s.do(t, http.MethodGet, "/api/v1/placements/upcoming", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Events []services.Event `json:"events"`
	}](t, w)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "OA", got.Events[0].Description)
	assert.Equal(t, 2, got.Events[0].DaysRemaining)

	w = s.do(t, http.MethodGet, "/api/v1/placements/upcoming?days=30&limit=5", "u1", nil)
	got = decode[struct {
		Events []services.Event `json:"events"`
	}](t, w)
	assert.Len(t, got.Events, 2)

	w = s.do(t, http.MethodGet, "/api/v1/placements/upcoming?days=-1", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkStatus(t *testing.T) {
	s := newTestServer(t, nil, 10)
	blocked := record("b", "Globex", models.StatusNotEligible, 20)
	blocked.Eligible = models.EligibilityNo
	seed(t, s, "u1", record("a", "Acme", models.StatusApplied, 12), blocked)

	w := s.do(t, http.MethodPost, "/api/v1/placements/bulk/status", "u1", gin.H{"ids": []string{"a", "b"}, "status": "Rejected"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		Updated []placementBody `json:"updated"`
		Skipped []struct {
			ID      string `json:"id"`
			Company string `json:"company_name"`
		} `json:"skipped"`
	}](t, w)
	require.Len(t, got.Updated, 1)
	assert.Equal(t, "Rejected", got.Updated[0].Status)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "Globex", got.Skipped[0].Company)

	w = s.do(t, http.MethodPost, "/api/v1/placements/bulk/delete", "u1", gin.H{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/placements/bulk/delete", "u1", gin.H{"ids": []string{"a", "b"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t, nil, 10)
	seed(t, s, "u1", record("a", "Acme", models.StatusApplied, 12), record("b", "Globex", models.StatusRejected, 20))

	w := s.do(t, http.MethodGet, "/api/v1/placements/export", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="placements_complete_2025-06-01.csv"`, w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], strings.Join(services.ExportColumns[:3], ",")))

	w = s.do(t, http.MethodGet, "/api/v1/placements/export?filtered=true&status=Rejected", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "placements_filtered_2025-06-01.csv")
	lines = strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Globex")
}

func TestExtractionEndpoints(t *testing.T) {
	extractor := stubExtractor{candidate: models.Candidate{CompanyName: "Acme", Role: "SDE", Location: "Not specified"}}
	s := newTestServer(t, extractor, 2)

	w := s.do(t, http.MethodPost, "/api/v1/extract", "u1", gin.H{"email_text": "Acme is hiring SDEs"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		Candidate models.Candidate `json:"candidate"`
	}](t, w)
	assert.Equal(t, "Acme", got.Candidate.CompanyName)

	w = s.do(t, http.MethodPost, "/api/v1/placements/from-candidate", "u1", gin.H{"candidate": got.Candidate})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[placementBody](t, w)
	assert.Equal(t, "Applied", created.Status)

	// Third AI call within the minute is rejected.
	w = s.do(t, http.MethodPost, "/api/v1/placements/"+created.ID+"/extract", "u1", gin.H{"email_text": "Round 2"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/extract", "u1", gin.H{"email_text": "again"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decode[errorEnvelope](t, w).Error.Code)

	// Other users have their own window.
	w = s.do(t, http.MethodPost, "/api/v1/extract", "u2", gin.H{"email_text": "hello"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/placements/"+created.ID+"/follow-up", "u1", gin.H{
		"candidate": gin.H{"status": "In Progress", "location": "Remote"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "In Progress", decode[placementBody](t, w).Status)

	// Placeholder values read as absent.
	w = s.do(t, http.MethodPost, "/api/v1/placements/"+created.ID+"/follow-up", "u1", gin.H{
		"candidate": gin.H{
			"registration_deadline": "Not specified",
			"are_you_eligible":      "Not specified",
			"ctc":                   "N/A",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "In Progress", decode[placementBody](t, w).Status)
}

func TestUnavailableCollaborators(t *testing.T) {
	s := newTestServer(t, nil, 10)
	w := s.do(t, http.MethodPost, "/api/v1/extract", "u1", gin.H{"email_text": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/inbox/suggestions", "u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter()
	now := handlerNow
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k", 2, time.Minute))
	assert.True(t, l.Allow("k", 2, time.Minute))
	assert.False(t, l.Allow("k", 2, time.Minute))
	assert.True(t, l.Allow("other", 2, time.Minute))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("k", 2, time.Minute))
}

func TestMemoryLimiterDropsExpiredBuckets(t *testing.T) {
	l := NewMemoryLimiter()
	now := handlerNow
	l.now = func() time.Time { return now }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		assert.True(t, l.Allow(ip, 5, time.Minute))
	}
	assert.Len(t, l.buckets, 3)

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("10.0.0.4", 5, time.Minute))
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "10.0.0.4")
}

func TestRedisLimiterNilIsOpen(t *testing.T) {
	var l *RedisLimiter
	assert.True(t, l.Allow("k", 1, time.Minute))
	assert.Nil(t, NewRedisLimiter(nil, nil))
}
