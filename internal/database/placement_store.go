package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"gorm.io/gorm"
)

// GormStore keeps placements in postgres. Every query is scoped to the owner.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) List(ctx context.Context, ownerID string) ([]models.Placement, error) {
	var records []models.Placement
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	return records, nil
}

func (s *GormStore) Create(ctx context.Context, p models.Placement) (models.Placement, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Placement{}, fmt.Errorf("create placement: %w", err)
	}
	return p, nil
}

// Update writes every column except the identity, owner and creation time.
// Select("*") makes gorm write zero values too, so cleared fields stay cleared.
func (s *GormStore) Update(ctx context.Context, p models.Placement) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Placement{}).
		Where("id = ? AND user_id = ?", p.ID, p.OwnerID).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(&p)
	if res.Error != nil {
		return fmt.Errorf("update placement %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.NewError(common.CodeNotFound, fmt.Sprintf("placement %s not found", p.ID), nil)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, ownerID, id string) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Placement{})
	if res.Error != nil {
		return fmt.Errorf("delete placement %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.NewError(common.CodeNotFound, fmt.Sprintf("placement %s not found", id), nil)
	}
	return nil
}

func (s *GormStore) DeleteMany(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND id IN ?", ownerID, ids).
		Delete(&models.Placement{}).Error
	if err != nil {
		return fmt.Errorf("delete placements: %w", err)
	}
	return nil
}
