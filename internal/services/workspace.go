package services

import (
	"context"
	"slices"
	"sync"

	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/dtos"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

// Workspace is the in-memory collection of one session. Every mutation is
// written through the store first; the collection only changes once the
// write succeeded, so a failure leaves it at its last known-good state.
type Workspace struct {
	svc     *PlacementService
	session Session

	mu      sync.RWMutex
	records []models.Placement
}

func LoadWorkspace(ctx context.Context, svc *PlacementService, sess Session) (*Workspace, error) {
	w := &Workspace{svc: svc, session: sess}
	if err := w.Refresh(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Workspace) Session() Session {
	return w.session
}

// Refresh replaces the collection with the store's current contents.
func (w *Workspace) Refresh(ctx context.Context) error {
	records, err := w.svc.List(ctx, w.session)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.records = records
	w.mu.Unlock()
	return nil
}

// Records returns a copy of the collection in store order.
func (w *Workspace) Records() []models.Placement {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.records)
}

func (w *Workspace) View(q ViewQuery) []models.Placement {
	return ApplyView(w.Records(), q)
}

func (w *Workspace) Find(id string) (models.Placement, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := w.indexOf(id)
	if i < 0 {
		return models.Placement{}, false
	}
	return w.records[i], true
}

func (w *Workspace) indexOf(id string) int {
	return slices.IndexFunc(w.records, func(p models.Placement) bool { return p.ID == id })
}

// replace swaps in an updated record. A result for a record that has left the
// collection meanwhile is dropped.
func (w *Workspace) replace(p models.Placement) (models.Placement, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(p.ID)
	if i < 0 {
		return models.Placement{}, common.NewError(common.CodeNotFound, "placement was removed before the update finished", nil)
	}
	w.records[i] = p
	return p, nil
}

func (w *Workspace) Create(ctx context.Context, form dtos.PlacementForm) (models.Placement, error) {
	p, err := w.svc.Create(ctx, w.session, form)
	if err != nil {
		return models.Placement{}, err
	}
	w.prepend(p)
	return p, nil
}

func (w *Workspace) CreateFromCandidate(ctx context.Context, c models.Candidate) (models.Placement, error) {
	p, err := w.svc.CreateFromCandidate(ctx, w.session, c)
	if err != nil {
		return models.Placement{}, err
	}
	w.prepend(p)
	return p, nil
}

func (w *Workspace) prepend(p models.Placement) {
	w.mu.Lock()
	w.records = slices.Insert(w.records, 0, p)
	w.mu.Unlock()
}

func (w *Workspace) Update(ctx context.Context, id string, form dtos.PlacementForm) (models.Placement, error) {
	p, err := w.svc.Update(ctx, w.session, id, form)
	if err != nil {
		return models.Placement{}, err
	}
	return w.replace(p)
}

func (w *Workspace) SetEligibility(ctx context.Context, id string, e models.Eligibility) (models.Placement, error) {
	p, err := w.svc.SetEligibility(ctx, w.session, id, e)
	if err != nil {
		return models.Placement{}, err
	}
	return w.replace(p)
}

func (w *Workspace) SetStatus(ctx context.Context, id, status string) (models.Placement, error) {
	p, err := w.svc.SetStatus(ctx, w.session, id, status)
	if err != nil {
		return models.Placement{}, err
	}
	return w.replace(p)
}

// BulkSetStatus applies whatever the store accepted, even when it failed part way.
func (w *Workspace) BulkSetStatus(ctx context.Context, ids []string, status string) (BulkResult, error) {
	result, err := w.svc.BulkSetStatus(ctx, w.session, ids, status)
	for _, p := range result.Updated {
		// A record deleted meanwhile simply stays deleted.
		_, _ = w.replace(p)
	}
	return result, err
}

func (w *Workspace) ApplyFollowUp(ctx context.Context, id string, c models.Candidate) (models.Placement, error) {
	p, err := w.svc.ApplyFollowUp(ctx, w.session, id, c)
	if err != nil {
		return models.Placement{}, err
	}
	return w.replace(p)
}

func (w *Workspace) Delete(ctx context.Context, id string) error {
	if err := w.svc.Delete(ctx, w.session, id); err != nil {
		return err
	}
	w.remove(id)
	return nil
}

func (w *Workspace) DeleteMany(ctx context.Context, ids []string) error {
	if err := w.svc.DeleteMany(ctx, w.session, ids); err != nil {
		return err
	}
	w.remove(ids...)
	return nil
}

func (w *Workspace) remove(ids ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = slices.DeleteFunc(w.records, func(p models.Placement) bool {
		return slices.Contains(ids, p.ID)
	})
}
