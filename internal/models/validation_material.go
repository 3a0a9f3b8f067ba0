package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// MaterialStatusPending is the status a material carries before the orchestrator picks it up.
	MaterialStatusPending = "pending"
	// MaterialStatusValidating marks a material currently being checked.
	MaterialStatusValidating = "validating"
	// MaterialStatusApproved indicates the model found evidence of the claimed work.
	MaterialStatusApproved = "approved"
	// MaterialStatusRejected indicates the evidence was absent, mismatched or unreadable.
	MaterialStatusRejected = "rejected"
	// MaterialStatusError indicates a local failure; a manual re-trigger is required.
	MaterialStatusError = "error"
)

// ValidationMaterial is one uploaded artefact submitted against a validation request.
// The ai_* columns are owned by the document validation service.
type ValidationMaterial struct {
	ID                  string     `gorm:"primaryKey;size:36" json:"id"`
	ValidationRequestID string     `gorm:"size:36;index;not null" json:"validation_request_id"`
	FilePath            string     `gorm:"size:1024;not null" json:"file_path"`
	Notes               *string    `gorm:"type:text" json:"notes"`
	UploadedAt          time.Time  `gorm:"autoCreateTime" json:"uploaded_at"`
	AIValidationStatus  string     `gorm:"column:ai_validation_status;size:32;default:pending" json:"ai_validation_status"`
	AIValidationResult  *string    `gorm:"column:ai_validation_result;type:text" json:"ai_validation_result"`
	AIValidatedAt       *time.Time `gorm:"column:ai_validated_at" json:"ai_validated_at"`
}

// TableName pins the table shared with the upload flow.
func (ValidationMaterial) TableName() string {
	return "validation_materials"
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (m *ValidationMaterial) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal reports whether the material reached approved, rejected or error.
func (m ValidationMaterial) IsTerminal() bool {
	switch m.AIValidationStatus {
	case MaterialStatusApproved, MaterialStatusRejected, MaterialStatusError:
		return true
	default:
		return false
	}
}
