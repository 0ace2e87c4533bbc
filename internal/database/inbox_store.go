package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInboxState stores the Gmail history cursor and the processed message
// ids per user.
type GormInboxState struct {
	DB *gorm.DB
}

func NewGormInboxState(db *gorm.DB) *GormInboxState {
	return &GormInboxState{DB: db}
}

// Cursor returns 0 when the user has never synced.
func (s *GormInboxState) Cursor(ctx context.Context, ownerID string) (uint64, error) {
	var cursor models.InboxCursor
	err := s.DB.WithContext(ctx).Where("user_id = ?", ownerID).First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load inbox cursor: %w", err)
	}
	return cursor.LastHistoryID, nil
}

func (s *GormInboxState) SaveCursor(ctx context.Context, ownerID string, historyID uint64) error {
	cursor := models.InboxCursor{OwnerID: ownerID, LastHistoryID: historyID}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_history_id", "updated_at"}),
	}).Create(&cursor).Error
	if err != nil {
		return fmt.Errorf("save inbox cursor: %w", err)
	}
	return nil
}

func (s *GormInboxState) IsProcessed(ctx context.Context, ownerID, messageID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.ProcessedEmail{}).
		Where("id = ? AND user_id = ?", messageID, ownerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check processed email: %w", err)
	}
	return count > 0, nil
}

func (s *GormInboxState) MarkProcessed(ctx context.Context, ownerID, messageID string) error {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProcessedEmail{ID: messageID, OwnerID: ownerID}).Error
	if err != nil {
		return fmt.Errorf("mark email processed: %w", err)
	}
	return nil
}

// MemoryInboxState is the in-process counterpart used with the memory store.
type MemoryInboxState struct {
	mu        sync.Mutex
	cursors   map[string]uint64
	processed map[string]map[string]bool
}

func NewMemoryInboxState() *MemoryInboxState {
	return &MemoryInboxState{
		cursors:   map[string]uint64{},
		processed: map[string]map[string]bool{},
	}
}

func (s *MemoryInboxState) Cursor(ctx context.Context, ownerID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[ownerID], nil
}

func (s *MemoryInboxState) SaveCursor(ctx context.Context, ownerID string, historyID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[ownerID] = historyID
	return nil
}

func (s *MemoryInboxState) IsProcessed(ctx context.Context, ownerID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[ownerID][messageID], nil
}

func (s *MemoryInboxState) MarkProcessed(ctx context.Context, ownerID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed[ownerID] == nil {
		s.processed[ownerID] = map[string]bool{}
	}
	s.processed[ownerID][messageID] = true
	return nil
}
