package database

import (
	"context"
	"testing"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(owner, company string, created time.Time) models.Placement {
	p := models.NewPlacement()
	p.OwnerID = owner
	p.CompanyName = company
	p.CreatedAt = created
	return p
}

func TestMemoryStoreListIsScopedAndNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()

	for i, company := range []string{"Acme", "Beta", "Gamma"} {
		_, err := store.Create(ctx, newRecord("u1", company, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, newRecord("u2", "Other", base))
	require.NoError(t, err)

	records, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Gamma", records[0].CompanyName)
	assert.Equal(t, "Acme", records[2].CompanyName)
	for _, p := range records {
		assert.NotEmpty(t, p.ID)
	}
}

func TestMemoryStoreUpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	p, err := store.Create(ctx, newRecord("u1", "Acme", created))
	require.NoError(t, err)

	p.Role = "SDE"
	p.CreatedAt = time.Now()
	require.NoError(t, store.Update(ctx, p))

	records, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "SDE", records[0].Role)
	assert.Equal(t, created, records[0].CreatedAt)

	p.OwnerID = "u2"
	err = store.Update(ctx, p)
	assert.True(t, common.Is(err, common.CodeNotFound))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ctc := 10.0
	rec := newRecord("u1", "Acme", time.Now())
	rec.CTC = &ctc

	p, err := s.Create(ctx, rec)
	require.NoError(t, err)
	*p.CTC = 99
	ctc = 42

	records, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, records[0].CTC)
	assert.Equal(t, 10.0, *records[0].CTC)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a, _ := s.Create(ctx, newRecord("u1", "Acme", time.Now()))
	b, _ := s.Create(ctx, newRecord("u1", "Beta", time.Now()))
	c, _ := s.Create(ctx, newRecord("u1", "Gamma", time.Now()))

	assert.True(t, common.Is(s.Delete(ctx, "u2", a.ID), common.CodeNotFound))
	require.NoError(t, s.Delete(ctx, "u1", a.ID))
	require.NoError(t, s.DeleteMany(ctx, "u1", []string{b.ID, "missing"}))

	records, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, c.ID, records[0].ID)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().List(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryInboxState(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryInboxState()

	cursor, err := s.Cursor(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, cursor)

	require.NoError(t, s.SaveCursor(ctx, "u1", 42))
	cursor, _ = s.Cursor(ctx, "u1")
	assert.Equal(t, uint64(42), cursor)

	done, _ := s.IsProcessed(ctx, "u1", "m1")
	assert.False(t, done)
	require.NoError(t, s.MarkProcessed(ctx, "u1", "m1"))
	done, _ = s.IsProcessed(ctx, "u1", "m1")
	assert.True(t, done)
	done, _ = s.IsProcessed(ctx, "u2", "m1")
	assert.False(t, done)
}
