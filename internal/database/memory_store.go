package database

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

// MemoryStore is a process-local placement store for STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Placement
}

func NewMemoryStore(seed ...models.Placement) *MemoryStore {
	s := &MemoryStore{records: make(map[string]models.Placement, len(seed))}
	for _, p := range seed {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.records[p.ID] = clonePlacement(p)
	}
	return s
}

func clonePlacement(p models.Placement) models.Placement {
	if p.CTC != nil {
		ctc := *p.CTC
		p.CTC = &ctc
	}
	return p
}

func (s *MemoryStore) List(ctx context.Context, ownerID string) ([]models.Placement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Placement, 0, len(s.records))
	for _, p := range s.records {
		if p.OwnerID == ownerID {
			out = append(out, clonePlacement(p))
		}
	}
	slices.SortFunc(out, func(a, b models.Placement) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, p models.Placement) (models.Placement, error) {
	if err := ctx.Err(); err != nil {
		return models.Placement{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.records[p.ID]; exists {
		return models.Placement{}, fmt.Errorf("placement %s already exists", p.ID)
	}
	s.records[p.ID] = clonePlacement(p)
	return clonePlacement(p), nil
}

func (s *MemoryStore) Update(ctx context.Context, p models.Placement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[p.ID]
	if !ok || current.OwnerID != p.OwnerID {
		return common.NewError(common.CodeNotFound, fmt.Sprintf("placement %s not found", p.ID), nil)
	}
	next := clonePlacement(p)
	next.ID = current.ID
	next.OwnerID = current.OwnerID
	next.CreatedAt = current.CreatedAt
	s.records[p.ID] = next
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[id]
	if !ok || current.OwnerID != ownerID {
		return common.NewError(common.CodeNotFound, fmt.Sprintf("placement %s not found", id), nil)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) DeleteMany(ctx context.Context, ownerID string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if current, ok := s.records[id]; ok && current.OwnerID == ownerID {
			delete(s.records, id)
		}
	}
	return nil
}
