package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-proof-api/internal/models"
)

// ValidationContextRepository reads the records that give a material its prompt context.
// Each lookup is a separate query; missing rows surface as gorm.ErrRecordNotFound.
type ValidationContextRepository interface {
	GetRequest(ctx context.Context, id string) (models.ValidationRequest, error)
	GetSubmission(ctx context.Context, id string) (models.TaskSubmission, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
}

type validationContextRepository struct {
	db *gorm.DB
}

// NewValidationContextRepository constructs the context lookup repository.
func NewValidationContextRepository(db *gorm.DB) ValidationContextRepository {
	return &validationContextRepository{db: db}
}

func (r *validationContextRepository) GetRequest(ctx context.Context, id string) (models.ValidationRequest, error) {
	var request models.ValidationRequest
	err := r.db.WithContext(ctx).
		Select("id", "task_submission_id", "student_id", "ta_id", "request_message", "status").
		First(&request, "id = ?", id).Error
	if err != nil {
		return models.ValidationRequest{}, err
	}
	return request, nil
}

func (r *validationContextRepository) GetSubmission(ctx context.Context, id string) (models.TaskSubmission, error) {
	var submission models.TaskSubmission
	err := r.db.WithContext(ctx).
		Select("id", "task_id", "student_id", "answers").
		First(&submission, "id = ?", id).Error
	if err != nil {
		return models.TaskSubmission{}, err
	}
	return submission, nil
}

func (r *validationContextRepository) GetTask(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Select("id", "title", "description").
		First(&task, "id = ?", id).Error
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}
