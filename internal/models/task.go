package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task is an exercise published in a session.
type Task struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName pins the tasks table.
func (Task) TableName() string {
	return "tasks"
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TaskSubmission holds the answers a student recorded for a task.
type TaskSubmission struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	TaskID      *string        `gorm:"size:36;index" json:"task_id"`
	StudentID   string         `gorm:"size:36" json:"student_id"`
	Answers     datatypes.JSON `json:"answers"`
	SubmittedAt time.Time      `gorm:"autoCreateTime" json:"submitted_at"`
}

// TableName pins the task_submissions table.
func (TaskSubmission) TableName() string {
	return "task_submissions"
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (s *TaskSubmission) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(s.ID) == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// CompletedAnswerCount counts recorded answers with a non-empty option list.
// Anything other than a JSON array counts as zero.
func (s TaskSubmission) CompletedAnswerCount() int {
	if len(s.Answers) == 0 {
		return 0
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(s.Answers, &entries); err != nil {
		return 0
	}

	count := 0
	for _, raw := range entries {
		var entry struct {
			Options []json.RawMessage `json:"options"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if len(entry.Options) > 0 {
			count++
		}
	}
	return count
}
