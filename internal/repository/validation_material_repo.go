package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-proof-api/internal/models"
)

// MaterialOutcome is the partial patch applied to a material's ai_* columns.
// A nil ValidatedAt leaves ai_validated_at untouched.
type MaterialOutcome struct {
	Status      string
	Result      string
	ValidatedAt *time.Time
}

// ValidationMaterialRepository exposes persistence helpers for validation materials.
type ValidationMaterialRepository interface {
	GetByID(ctx context.Context, id string) (models.ValidationMaterial, error)
	MarkValidating(ctx context.Context, id string) error
	SaveOutcome(ctx context.Context, id string, outcome MaterialOutcome) error
}

type validationMaterialRepository struct {
	db *gorm.DB
}

// NewValidationMaterialRepository constructs a repository for validation materials.
func NewValidationMaterialRepository(db *gorm.DB) ValidationMaterialRepository {
	return &validationMaterialRepository{db: db}
}

func (r *validationMaterialRepository) GetByID(ctx context.Context, id string) (models.ValidationMaterial, error) {
	var material models.ValidationMaterial
	if err := r.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		return models.ValidationMaterial{}, err
	}
	return material, nil
}

func (r *validationMaterialRepository) MarkValidating(ctx context.Context, id string) error {
	return r.patch(ctx, id, map[string]interface{}{
		"ai_validation_status": models.MaterialStatusValidating,
	})
}

func (r *validationMaterialRepository) SaveOutcome(ctx context.Context, id string, outcome MaterialOutcome) error {
	updates := map[string]interface{}{
		"ai_validation_status": outcome.Status,
		"ai_validation_result": outcome.Result,
	}
	if outcome.ValidatedAt != nil {
		updates["ai_validated_at"] = *outcome.ValidatedAt
	}
	return r.patch(ctx, id, updates)
}

func (r *validationMaterialRepository) patch(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.ValidationMaterial{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
