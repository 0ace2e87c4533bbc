package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/dtos"
	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"go.uber.org/zap"
)

// PlacementStore persists placements. List returns the newest first.
// Update writes every mutable field of p.ID; id, owner and created_at are never changed.
type PlacementStore interface {
	List(ctx context.Context, ownerID string) ([]models.Placement, error)
	Create(ctx context.Context, p models.Placement) (models.Placement, error)
	Update(ctx context.Context, p models.Placement) error
	Delete(ctx context.Context, ownerID, id string) error
	DeleteMany(ctx context.Context, ownerID string, ids []string) error
}

// Identity reports the signed-in user, if any.
type Identity interface {
	CurrentUser(ctx context.Context) (string, bool)
}

// Session scopes every call to one user. It is built per request.
type Session struct {
	UserID   string
	Location *time.Location
}

type PlacementService struct {
	store     PlacementStore
	extractor Extractor
	identity  Identity
	location  *time.Location
	log       *zap.Logger

	// Now is the clock used for timestamps.
	Now func() time.Time
}

func NewPlacementService(store PlacementStore, extractor Extractor, identity Identity, loc *time.Location, log *zap.Logger) *PlacementService {
	if loc == nil {
		loc = time.Local
	}
	return &PlacementService{
		store:     store,
		extractor: extractor,
		identity:  identity,
		location:  loc,
		log:       logging.OrNop(log),
		Now:       time.Now,
	}
}

func (s *PlacementService) Session(ctx context.Context) (Session, error) {
	userID, ok := s.identity.CurrentUser(ctx)
	if !ok || userID == "" {
		return Session{}, common.NewError(common.CodeUnauthorized, "sign in required", nil)
	}
	return Session{UserID: userID, Location: s.location}, nil
}

func (s *PlacementService) now() time.Time {
	return s.Now()
}

func storeFailure(op string, err error) error {
	if common.Is(err, common.CodeNotFound) {
		return err
	}
	return common.NewError(common.CodeStore, fmt.Sprintf("failed to %s placement", op), err)
}

func notFound(id string) error {
	return common.NewError(common.CodeNotFound, fmt.Sprintf("placement %s not found", id), nil)
}

func (s *PlacementService) List(ctx context.Context, sess Session) ([]models.Placement, error) {
	records, err := s.store.List(ctx, sess.UserID)
	if err != nil {
		return nil, storeFailure("list", err)
	}
	return records, nil
}

func (s *PlacementService) Get(ctx context.Context, sess Session, id string) (models.Placement, error) {
	records, err := s.List(ctx, sess)
	if err != nil {
		return models.Placement{}, err
	}
	for _, p := range records {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Placement{}, notFound(id)
}

// Create saves a new placement from a full form submission.
func (s *PlacementService) Create(ctx context.Context, sess Session, form dtos.PlacementForm) (models.Placement, error) {
	p := models.NewPlacement()
	p.OwnerID = sess.UserID
	form.ApplyTo(&p)
	p, err := applyEligibilityAndStatus(p, form.Eligible, form.Status, models.StatusApplied)
	if err != nil {
		return models.Placement{}, err
	}
	return s.insert(ctx, p)
}

// CreateFromCandidate saves a reviewed AI candidate as a new placement.
func (s *PlacementService) CreateFromCandidate(ctx context.Context, sess Session, c models.Candidate) (models.Placement, error) {
	p, err := MergeCandidate(nil, c, MergeCreate, s.now())
	if err != nil {
		return models.Placement{}, err
	}
	p.OwnerID = sess.UserID
	return s.insert(ctx, p)
}

func (s *PlacementService) insert(ctx context.Context, p models.Placement) (models.Placement, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return models.Placement{}, err
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	created, err := s.store.Create(ctx, p)
	if err != nil {
		return models.Placement{}, storeFailure("create", err)
	}
	s.log.Info("placement created", zap.String("id", created.ID), zap.String("company", created.CompanyName))
	return created, nil
}

// Update replaces the editable fields of a placement with the form contents.
func (s *PlacementService) Update(ctx context.Context, sess Session, id string, form dtos.PlacementForm) (models.Placement, error) {
	existing, err := s.Get(ctx, sess, id)
	if err != nil {
		return models.Placement{}, err
	}
	p := existing
	form.ApplyTo(&p)
	p, err = applyEligibilityAndStatus(p, form.Eligible, form.Status, existing.Status)
	if err != nil {
		return models.Placement{}, err
	}
	return s.save(ctx, p)
}

// applyEligibilityAndStatus reconciles eligibility first and then gates a
// requested status. A requested status equal to unchanged is not a change.
func applyEligibilityAndStatus(p models.Placement, eligible models.Eligibility, requested, unchanged models.Status) (models.Placement, error) {
	p = ReconcileEligibility(p, eligible)
	if st, ok := models.ParseStatus(string(requested)); ok {
		requested = st
	}
	if requested == "" || requested == unchanged {
		return p, nil
	}
	if err := CheckStatusChange(p, requested); err != nil {
		return models.Placement{}, err
	}
	p.Status = requested
	return p, nil
}

func (s *PlacementService) save(ctx context.Context, p models.Placement) (models.Placement, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return models.Placement{}, err
	}
	p.UpdatedAt = s.now()
	if err := s.store.Update(ctx, p); err != nil {
		return models.Placement{}, storeFailure("update", err)
	}
	return p, nil
}

func (s *PlacementService) SetEligibility(ctx context.Context, sess Session, id string, e models.Eligibility) (models.Placement, error) {
	existing, err := s.Get(ctx, sess, id)
	if err != nil {
		return models.Placement{}, err
	}
	return s.save(ctx, ReconcileEligibility(existing, e))
}

func parseStatus(label string) (models.Status, error) {
	st, ok := models.ParseStatus(label)
	if !ok {
		return "", common.NewValidationError("invalid status", map[string]string{
			"status": fmt.Sprintf("unknown status %q", label),
		})
	}
	return st, nil
}

func (s *PlacementService) SetStatus(ctx context.Context, sess Session, id, label string) (models.Placement, error) {
	st, err := parseStatus(label)
	if err != nil {
		return models.Placement{}, err
	}
	existing, err := s.Get(ctx, sess, id)
	if err != nil {
		return models.Placement{}, err
	}
	if err := CheckStatusChange(existing, st); err != nil {
		return models.Placement{}, err
	}
	existing.Status = st
	return s.save(ctx, existing)
}

type SkippedPlacement struct {
	ID      string
	Company string
	Reason  string
}

type BulkResult struct {
	Updated []models.Placement
	Skipped []SkippedPlacement
}

// BulkSetStatus changes the status of every listed placement it is allowed
// to. Not-eligible and unknown records are skipped and reported. It stops at
// the first store failure; Updated then holds what was already written.
func (s *PlacementService) BulkSetStatus(ctx context.Context, sess Session, ids []string, label string) (BulkResult, error) {
	result := BulkResult{Updated: []models.Placement{}, Skipped: []SkippedPlacement{}}
	st, err := parseStatus(label)
	if err != nil {
		return result, err
	}
	if len(ids) == 0 {
		return result, common.NewValidationError("no placements selected", map[string]string{"ids": "required"})
	}
	records, err := s.List(ctx, sess)
	if err != nil {
		return result, err
	}
	byID := make(map[string]models.Placement, len(records))
	for _, p := range records {
		byID[p.ID] = p
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, ok := byID[id]
		if !ok {
			result.Skipped = append(result.Skipped, SkippedPlacement{ID: id, Reason: "not found"})
			continue
		}
		if err := CheckStatusChange(p, st); err != nil {
			result.Skipped = append(result.Skipped, SkippedPlacement{ID: id, Company: p.CompanyName, Reason: err.Error()})
			continue
		}
		p.Status = st
		saved, err := s.save(ctx, p)
		if err != nil {
			return result, err
		}
		result.Updated = append(result.Updated, saved)
	}
	if len(result.Skipped) > 0 {
		s.log.Info("bulk status change skipped placements",
			zap.String("status", string(st)),
			zap.Int("updated", len(result.Updated)),
			zap.Int("skipped", len(result.Skipped)))
	}
	return result, nil
}

func (s *PlacementService) Delete(ctx context.Context, sess Session, id string) error {
	if strings.TrimSpace(id) == "" {
		return common.NewValidationError("placement id is required", map[string]string{"id": "required"})
	}
	if err := s.store.Delete(ctx, sess.UserID, id); err != nil {
		return storeFailure("delete", err)
	}
	return nil
}

func (s *PlacementService) DeleteMany(ctx context.Context, sess Session, ids []string) error {
	if len(ids) == 0 {
		return common.NewValidationError("no placements selected", map[string]string{"ids": "required"})
	}
	if err := s.store.DeleteMany(ctx, sess.UserID, ids); err != nil {
		return storeFailure("delete", err)
	}
	return nil
}

// CanExtract reports whether an extractor is configured.
func (s *PlacementService) CanExtract() bool {
	return s != nil && s.extractor != nil
}

// Extract runs the extractor and returns a cleaned candidate for review.
// Nothing is persisted.
func (s *PlacementService) Extract(ctx context.Context, sess Session, emailText, hint string) (models.Candidate, error) {
	if s.extractor == nil {
		return models.Candidate{}, common.NewError(common.CodeUnavailable, "AI extraction is not configured", nil)
	}
	c, err := s.extractor.Extract(ctx, emailText, hint)
	if err != nil {
		if common.CodeOf(err) == common.CodeInternal {
			err = common.NewError(common.CodeExtraction, "AI extraction failed", err)
		}
		return models.Candidate{}, err
	}
	s.log.Debug("candidate extracted", zap.String("user", sess.UserID), zap.String("company", c.CompanyName))
	return SanitizeCandidate(c), nil
}

// ExtractFollowUp extracts a candidate for an existing placement, naming its
// company in the prompt.
func (s *PlacementService) ExtractFollowUp(ctx context.Context, sess Session, id, emailText string) (models.Candidate, error) {
	existing, err := s.Get(ctx, sess, id)
	if err != nil {
		return models.Candidate{}, err
	}
	return s.Extract(ctx, sess, emailText, existing.CompanyName)
}

// ApplyFollowUp merges a reviewed candidate into an existing placement.
func (s *PlacementService) ApplyFollowUp(ctx context.Context, sess Session, id string, c models.Candidate) (models.Placement, error) {
	existing, err := s.Get(ctx, sess, id)
	if err != nil {
		return models.Placement{}, err
	}
	merged, err := MergeCandidate(&existing, c, MergeFollowUp, s.now())
	if err != nil {
		return models.Placement{}, err
	}
	return s.save(ctx, merged)
}
