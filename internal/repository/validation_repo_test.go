package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-proof-api/internal/models"
)

func setupValidationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ValidationRequest{}, &models.ValidationMaterial{}, &models.TaskSubmission{}, &models.Task{}))
	return db
}

func TestValidationMaterialRepositoryGetByID(t *testing.T) {
	db := setupValidationTestDB(t)
	repo := NewValidationMaterialRepository(db)

	material := models.ValidationMaterial{ValidationRequestID: "req-1", FilePath: "student/req-1/proof.pdf"}
	require.NoError(t, db.Create(&material).Error)
	require.NotEmpty(t, material.ID)

	stored, err := repo.GetByID(context.Background(), material.ID)
	require.NoError(t, err)
	require.Equal(t, "student/req-1/proof.pdf", stored.FilePath)
	require.Equal(t, models.MaterialStatusPending, stored.AIValidationStatus)
	require.Nil(t, stored.AIValidatedAt)

	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestValidationMaterialRepositoryStatusPatches(t *testing.T) {
	db := setupValidationTestDB(t)
	repo := NewValidationMaterialRepository(db)

	notes := "see page 2"
	material := models.ValidationMaterial{ValidationRequestID: "req-2", FilePath: "a/b/c.png", Notes: &notes}
	require.NoError(t, db.Create(&material).Error)

	require.NoError(t, repo.MarkValidating(context.Background(), material.ID))
	stored, err := repo.GetByID(context.Background(), material.ID)
	require.NoError(t, err)
	require.Equal(t, models.MaterialStatusValidating, stored.AIValidationStatus)

	validatedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SaveOutcome(context.Background(), material.ID, MaterialOutcome{
		Status:      models.MaterialStatusRejected,
		Result:      "no evidence",
		ValidatedAt: &validatedAt,
	}))

	stored, err = repo.GetByID(context.Background(), material.ID)
	require.NoError(t, err)
	require.Equal(t, models.MaterialStatusRejected, stored.AIValidationStatus)
	require.NotNil(t, stored.AIValidationResult)
	require.Equal(t, "no evidence", *stored.AIValidationResult)
	require.NotNil(t, stored.AIValidatedAt)
	require.True(t, stored.AIValidatedAt.Equal(validatedAt))
	require.Equal(t, "a/b/c.png", stored.FilePath, "patch must not touch other columns")
	require.Equal(t, "see page 2", *stored.Notes)

	require.NoError(t, repo.SaveOutcome(context.Background(), material.ID, MaterialOutcome{
		Status: models.MaterialStatusError,
		Result: "Failed to download file",
	}))
	stored, err = repo.GetByID(context.Background(), material.ID)
	require.NoError(t, err)
	require.Equal(t, models.MaterialStatusError, stored.AIValidationStatus)
	require.NotNil(t, stored.AIValidatedAt, "error outcome leaves the previous timestamp")

	require.ErrorIs(t, repo.MarkValidating(context.Background(), "missing"), gorm.ErrRecordNotFound)
}

func TestValidationContextRepositoryLookups(t *testing.T) {
	db := setupValidationTestDB(t)
	repo := NewValidationContextRepository(db)

	description := "Implement a linked list"
	task := models.Task{Title: "Week 3", Description: &description}
	require.NoError(t, db.Create(&task).Error)

	submission := models.TaskSubmission{TaskID: &task.ID, StudentID: "student-1", Answers: datatypes.JSON(`[{"options":["a"]}]`)}
	require.NoError(t, db.Create(&submission).Error)

	request := models.ValidationRequest{TaskSubmissionID: &submission.ID, StudentID: "student-1", TAID: "ta-1", RequestMessage: "show exercise 2"}
	require.NoError(t, db.Create(&request).Error)

	ctx := context.Background()

	storedRequest, err := repo.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, "show exercise 2", storedRequest.RequestMessage)
	require.Equal(t, submission.ID, *storedRequest.TaskSubmissionID)

	storedSubmission, err := repo.GetSubmission(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, 1, storedSubmission.CompletedAnswerCount())

	storedTask, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, "Week 3", storedTask.Title)
	require.Equal(t, description, *storedTask.Description)

	_, err = repo.GetTask(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.GetSubmission(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.GetRequest(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
