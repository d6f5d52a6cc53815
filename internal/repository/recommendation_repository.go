package repository

import (
	"fmt"

	"gorm.io/gorm"

	"careercompass/internal/model"
)

type RecommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

func (r *RecommendationRepository) Create(record *model.RecommendationRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create recommendation record failed: %w", err)
	}
	return nil
}

func (r *RecommendationRepository) ListRecent(limit int) ([]model.RecommendationRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var records []model.RecommendationRecord
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list recommendation records failed: %w", err)
	}
	return records, nil
}
