package dto

import "time"

// ValidateDocumentRequest is the JSON body accepted by the validation endpoint.
type ValidateDocumentRequest struct {
	MaterialID string `json:"materialId" validate:"required,uuid"`
}

// ValidateDocumentResponse reports the verdict written to the material.
type ValidateDocumentResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Result  string `json:"result"`
}

// MaterialStatusResponse exposes the current validation state of a material.
// Done is true once the status is terminal, so pollers can stop.
type MaterialStatusResponse struct {
	ID                  string     `json:"id"`
	ValidationRequestID string     `json:"validation_request_id"`
	FilePath            string     `json:"file_path"`
	Notes               *string    `json:"notes"`
	UploadedAt          time.Time  `json:"uploaded_at"`
	AIValidationStatus  string     `json:"ai_validation_status"`
	AIValidationResult  *string    `json:"ai_validation_result"`
	AIValidatedAt       *time.Time `json:"ai_validated_at"`
	Done                bool       `json:"done"`
}
