package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/auth"
	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/database"
	"github.com/justsurfingit/Placement-Tracker/internal/dtos"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// flakyStore fails selected operations on demand.
type flakyStore struct {
	*database.MemoryStore
	failUpdate error
	failDelete error
	updates    int
	failAfter  int
}

func (s *flakyStore) Update(ctx context.Context, p models.Placement) error {
	s.updates++
	if s.failUpdate != nil && s.updates > s.failAfter {
		return s.failUpdate
	}
	return s.MemoryStore.Update(ctx, p)
}

func (s *flakyStore) Delete(ctx context.Context, ownerID, id string) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	return s.MemoryStore.Delete(ctx, ownerID, id)
}

func newTestService(t *testing.T, extractor Extractor, seed ...models.Placement) (*PlacementService, *flakyStore, Session) {
	t.Helper()
	store := &flakyStore{MemoryStore: database.NewMemoryStore(seed...)}
	svc := NewPlacementService(store, extractor, auth.StaticIdentity("user-1"), time.UTC, nil)
	svc.Now = func() time.Time { return serviceNow }
	sess, err := svc.Session(context.Background())
	require.NoError(t, err)
	return svc, store, sess
}

func TestSessionRequiresUser(t *testing.T) {
	svc := NewPlacementService(database.NewMemoryStore(), nil, auth.ContextIdentity{}, nil, nil)
	_, err := svc.Session(context.Background())
	assert.True(t, common.Is(err, common.CodeUnauthorized))

	sess, err := svc.Session(auth.WithUser(context.Background(), "u9"))
	require.NoError(t, err)
	assert.Equal(t, "u9", sess.UserID)
}

func TestCreateFromForm(t *testing.T) {
	svc, _, sess := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, sess, dtos.PlacementForm{CompanyName: "  Acme ", Role: "SDE", CTC: ptr(14.5)})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "user-1", p.OwnerID)
	assert.Equal(t, "Acme", p.CompanyName)
	assert.Equal(t, models.StatusApplied, p.Status)
	assert.Equal(t, serviceNow, p.CreatedAt)
	assert.Equal(t, models.ResultPending, p.Tests[0].Result)

	_, err = svc.Create(ctx, sess, dtos.PlacementForm{CompanyName: " "})
	assert.True(t, common.Is(err, common.CodeValidation))

	_, err = svc.Create(ctx, sess, dtos.PlacementForm{CompanyName: "Globex", Status: "Hired"})
	assert.True(t, common.Is(err, common.CodeValidation))

	records, err := svc.List(ctx, sess)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCreateNotEligibleForm(t *testing.T) {
	svc, _, sess := newTestService(t, nil)
	ctx := context.Background()

	// The form default status must not be treated as a requested change.
	p, err := svc.Create(ctx, sess, dtos.PlacementForm{CompanyName: "Acme", Eligible: models.EligibilityNo, Status: models.StatusApplied})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotEligible, p.Status)

	_, err = svc.Create(ctx, sess, dtos.PlacementForm{CompanyName: "Globex", Eligible: models.EligibilityNo, Status: models.StatusSelected})
	assert.True(t, common.Is(err, common.CodeInvariant))
}

func TestEligibilityLifecycle(t *testing.T) {
	svc, _, sess := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, sess, dtos.PlacementForm{CompanyName: "Acme"})
	require.NoError(t, err)

	p, err = svc.SetStatus(ctx, sess, p.ID, "In Progress")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, p.Status)

	p, err = svc.SetEligibility(ctx, sess, p.ID, models.EligibilityNo)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotEligible, p.Status)

	_, err = svc.SetStatus(ctx, sess, p.ID, "Selected")
	assert.True(t, common.Is(err, common.CodeInvariant))

	p, err = svc.SetEligibility(ctx, sess, p.ID, models.EligibilityYes)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, p.Status)

	p, err = svc.SetStatus(ctx, sess, p.ID, "selected")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSelected, p.Status)

	stored, err := svc.Get(ctx, sess, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, stored)
}

func TestUpdateReplacesFields(t *testing.T) {
	existing := placement("p1", "Acme", withCTC(10), withLocation("Pune"), withStatus(models.StatusInProgress))
	svc, _, sess := newTestService(t, nil, existing)
	ctx := context.Background()

	p, err := svc.Update(ctx, sess, "p1", dtos.PlacementForm{CompanyName: "Acme Corp", Role: "SDE"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", p.CompanyName)
	assert.Nil(t, p.CTC)
	assert.Empty(t, p.Location)
	assert.Equal(t, models.StatusInProgress, p.Status)
	assert.Equal(t, existing.CreatedAt, p.CreatedAt)
	assert.Equal(t, serviceNow, p.UpdatedAt)

	_, err = svc.Update(ctx, sess, "missing", dtos.PlacementForm{CompanyName: "X"})
	assert.True(t, common.Is(err, common.CodeNotFound))
}

func TestUpdateOfForeignRecordIsNotFound(t *testing.T) {
	other := placement("p1", "Acme")
	other.OwnerID = "user-2"
	svc, _, sess := newTestService(t, nil, other)

	_, err := svc.SetStatus(context.Background(), sess, "p1", "Selected")
	assert.True(t, common.Is(err, common.CodeNotFound))
}

func TestBulkSetStatusSkipsIneligible(t *testing.T) {
	svc, _, sess := newTestService(t, nil,
		placement("a", "Acme"),
		placement("b", "Globex", withEligible(models.EligibilityNo), withStatus(models.StatusNotEligible)),
		placement("c", "Initech"),
	)
	ctx := context.Background()

	res, err := svc.BulkSetStatus(ctx, sess, []string{"a", "b", "c", "a", "zzz"}, "Rejected")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(res.Updated))
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "b", res.Skipped[0].ID)
	assert.Equal(t, "Globex", res.Skipped[0].Company)
	assert.Equal(t, "zzz", res.Skipped[1].ID)

	b, err := svc.Get(ctx, sess, "b")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotEligible, b.Status)

	_, err = svc.BulkSetStatus(ctx, sess, nil, "Rejected")
	assert.True(t, common.Is(err, common.CodeValidation))
	_, err = svc.BulkSetStatus(ctx, sess, []string{"a"}, "Ghosted")
	assert.True(t, common.Is(err, common.CodeValidation))
}

func TestBulkSetStatusStopsAtStoreFailure(t *testing.T) {
	svc, store, sess := newTestService(t, nil, placement("a", "Acme"), placement("b", "Globex"))
	store.failUpdate = errors.New("connection reset")
	store.failAfter = 1

	res, err := svc.BulkSetStatus(context.Background(), sess, []string{"a", "b"}, "Selected")
	assert.True(t, common.Is(err, common.CodeStore))
	assert.Equal(t, []string{"a"}, ids(res.Updated))
}

func TestDelete(t *testing.T) {
	svc, _, sess := newTestService(t, nil, placement("a", "Acme"), placement("b", "Globex"), placement("c", "Initech"))
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, sess, "a"))
	assert.True(t, common.Is(svc.Delete(ctx, sess, "a"), common.CodeNotFound))
	assert.True(t, common.Is(svc.Delete(ctx, sess, ""), common.CodeValidation))

	require.NoError(t, svc.DeleteMany(ctx, sess, []string{"b", "c"}))
	assert.True(t, common.Is(svc.DeleteMany(ctx, sess, nil), common.CodeValidation))

	records, err := svc.List(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtractAndApply(t *testing.T) {
	model := &fakeModel{response: `{"company_name": "Acme", "status": "In Progress", "interview_1": "HR round", "interview_1_date": "10/06/2025", "location": "unknown"}`}
	svc, _, sess := newTestService(t, NewLLMServiceWithModel(model, time.Second, nil),
		placement("p1", "Acme", withLocation("Pune"), withEligible(models.EligibilityYes)))
	ctx := context.Background()

	c, err := svc.ExtractFollowUp(ctx, sess, "p1", "Your HR round is on 10 June")
	require.NoError(t, err)
	assert.Contains(t, model.prompts[0], `"company_name": "Acme"`)
	assert.Equal(t, models.StatusInProgress, c.Status)

	p, err := svc.ApplyFollowUp(ctx, sess, "p1", c)
	require.NoError(t, err)
	assert.Equal(t, "Pune", p.Location)
	assert.Equal(t, "HR round", p.Interviews[0].Description)
	assert.Equal(t, models.NewDate(2025, 6, 10), p.Interviews[0].Date)
	assert.Equal(t, models.StatusInProgress, p.Status)

	_, err = svc.ApplyFollowUp(ctx, sess, "gone", c)
	assert.True(t, common.Is(err, common.CodeNotFound))
}

func TestExtractWithoutExtractor(t *testing.T) {
	svc, _, sess := newTestService(t, nil)
	_, err := svc.Extract(context.Background(), sess, "hello", "")
	assert.True(t, common.Is(err, common.CodeUnavailable))
}

func TestCreateFromCandidate(t *testing.T) {
	svc, _, sess := newTestService(t, nil)
	c := models.Candidate{CompanyName: "Acme", Eligible: models.EligibilityNo, Status: models.StatusInProgress}

	p, err := svc.CreateFromCandidate(context.Background(), sess, c)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "user-1", p.OwnerID)
	assert.Equal(t, models.StatusNotEligible, p.Status)
}
