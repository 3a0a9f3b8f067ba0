package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ValidationRequest is a reviewer's ask that a student prove completion of claimed work.
type ValidationRequest struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	TaskSubmissionID *string   `gorm:"size:36;index" json:"task_submission_id"`
	StudentID        string    `gorm:"size:36;not null" json:"student_id"`
	TAID             string    `gorm:"column:ta_id;size:36;not null" json:"ta_id"`
	RequestMessage   string    `gorm:"type:text" json:"request_message"`
	Status           string    `gorm:"size:32;default:pending" json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName pins the table shared with the reviewer flow.
func (ValidationRequest) TableName() string {
	return "validation_requests"
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (r *ValidationRequest) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
