package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-proof-api/internal/dto"
	"github.com/noah-isme/gema-proof-api/internal/middleware"
	"github.com/noah-isme/gema-proof-api/internal/models"
	"github.com/noah-isme/gema-proof-api/internal/observability"
	"github.com/noah-isme/gema-proof-api/internal/repository"
	"github.com/noah-isme/gema-proof-api/pkg/ai"
)

const inferenceErrorExcerpt = 200

// FileStore reads uploaded proof files by storage path.
type FileStore interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// DocumentValidationService runs the proof-of-work validation pipeline for a material.
type DocumentValidationService interface {
	Validate(ctx context.Context, materialID string) (dto.ValidateDocumentResponse, error)
	GetMaterialStatus(ctx context.Context, materialID string) (dto.MaterialStatusResponse, error)
}

// DocumentValidationOptions tunes the pipeline. Guard and Events are optional.
type DocumentValidationOptions struct {
	InferenceTimeout time.Duration
	MaxFileSizeBytes int64
	Guard            InFlightGuard
	Events           ValidationEventPublisher
}

type documentValidationService struct {
	materials repository.ValidationMaterialRepository
	lookups   repository.ValidationContextRepository
	store     FileStore
	verifier  ai.Verifier
	guard     InFlightGuard
	events    ValidationEventPublisher
	timeout   time.Duration
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewDocumentValidationService constructs the validation orchestrator.
// A nil verifier makes every run fail with ErrVerifierUnavailable before any write.
func NewDocumentValidationService(
	materials repository.ValidationMaterialRepository,
	lookups repository.ValidationContextRepository,
	store FileStore,
	verifier ai.Verifier,
	opts DocumentValidationOptions,
	logger zerolog.Logger,
) DocumentValidationService {
	if opts.InferenceTimeout <= 0 {
		opts.InferenceTimeout = 60 * time.Second
	}
	if opts.MaxFileSizeBytes <= 0 {
		opts.MaxFileSizeBytes = 20 * 1024 * 1024
	}

	return &documentValidationService{
		materials: materials,
		lookups:   lookups,
		store:     store,
		verifier:  verifier,
		guard:     opts.Guard,
		events:    opts.Events,
		timeout:   opts.InferenceTimeout,
		maxSize:   opts.MaxFileSizeBytes,
		logger:    logger.With().Str("component", "document_validation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-proof-api/internal/service/validation"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *documentValidationService) Validate(ctx context.Context, materialID string) (dto.ValidateDocumentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "validation.run")
	defer span.End()

	materialID = strings.TrimSpace(materialID)
	correlationID := middleware.CorrelationIDFromContext(ctx)
	span.SetAttributes(
		attribute.String("validation.material_id", materialID),
		attribute.String("correlation_id", correlationID),
	)

	start := time.Now()
	defer func() {
		observability.ValidationDuration().Observe(time.Since(start).Seconds())
	}()

	if s.verifier == nil {
		span.RecordError(ErrVerifierUnavailable)
		span.SetStatus(codes.Error, "verifier unavailable")
		return dto.ValidateDocumentResponse{}, ErrVerifierUnavailable
	}

	material, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "material not found")
			return dto.ValidateDocumentResponse{}, newFailure(ErrMaterialNotFound, "Material not found")
		}
		span.SetStatus(codes.Error, "load failed")
		return dto.ValidateDocumentResponse{}, fmt.Errorf("load material: %w", err)
	}

	logger := s.logger.With().
		Str("correlation_id", correlationID).
		Str("material_id", material.ID).
		Str("file_path", material.FilePath).
		Logger()

	if s.guard != nil {
		token, acquired, err := s.guard.Acquire(ctx, material.ID)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("in-flight guard unavailable, continuing without it")
		case !acquired:
			span.SetStatus(codes.Error, "already running")
			return dto.ValidateDocumentResponse{}, ErrValidationInProgress
		default:
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), material.ID, token); err != nil {
					logger.Warn().Err(err).Msg("release in-flight guard")
				}
			}()
		}
	}

	if err := s.materials.MarkValidating(ctx, material.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark validating failed")
		return dto.ValidateDocumentResponse{}, fmt.Errorf("mark material validating: %w", err)
	}

	observability.ValidationInFlight().Inc()
	defer observability.ValidationInFlight().Dec()

	promptContext := s.loadPromptContext(ctx, material, logger)

	format, ext, err := formatForPath(material.FilePath)
	if err != nil {
		return dto.ValidateDocumentResponse{}, s.fail(ctx, span, material.ID, err, logger)
	}
	span.SetAttributes(attribute.String("validation.extension", ext))

	data, err := s.download(ctx, material.FilePath)
	if err != nil {
		return dto.ValidateDocumentResponse{}, s.fail(ctx, span, material.ID, err, logger)
	}
	span.SetAttributes(attribute.Int("validation.size_bytes", len(data)))

	if err := verifyContent(ext, format, data); err != nil {
		logger.Warn().Str("expected", format.Name).Msg("file content does not match extension")
		return dto.ValidateDocumentResponse{}, s.fail(ctx, span, material.ID, err, logger)
	}

	input := ai.VerificationInput{
		Document: ai.Document{Kind: format.Kind, MediaType: format.MediaType, Data: data},
		Prompt:   ai.BuildValidationPrompt(promptContext),
	}

	reply, err := s.infer(ctx, input)
	if err != nil {
		return dto.ValidateDocumentResponse{}, s.fail(ctx, span, material.ID, err, logger)
	}

	verdict := ai.ParseVerdict(reply.Text)
	if !verdict.Parsed {
		logger.Warn().Str("model", reply.Model).Msg("model reply was not a verdict object, recording as rejected")
	}

	status := models.MaterialStatusRejected
	if verdict.Approved {
		status = models.MaterialStatusApproved
	}

	validatedAt := s.now()
	outcome := repository.MaterialOutcome{Status: status, Result: verdict.Reasoning, ValidatedAt: &validatedAt}
	if err := s.materials.SaveOutcome(context.WithoutCancel(ctx), material.ID, outcome); err != nil {
		logger.Error().Err(err).Str("status", status).Msg("persist verdict")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist verdict failed")
		return dto.ValidateDocumentResponse{}, fmt.Errorf("persist verdict: %w", err)
	}

	observability.ValidationOutcomes().WithLabelValues(status).Inc()
	span.SetAttributes(attribute.String("validation.status", status))
	span.SetStatus(codes.Ok, status)
	logger.Info().Str("status", status).Str("provider", reply.Provider).Msg("material validated")

	s.publish(ctx, MaterialValidatedEvent{
		MaterialID:  material.ID,
		Status:      status,
		Result:      verdict.Reasoning,
		ValidatedAt: &validatedAt,
	}, logger)

	return dto.ValidateDocumentResponse{Success: true, Status: status, Result: verdict.Reasoning}, nil
}

func (s *documentValidationService) GetMaterialStatus(ctx context.Context, materialID string) (dto.MaterialStatusResponse, error) {
	material, err := s.materials.GetByID(ctx, strings.TrimSpace(materialID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MaterialStatusResponse{}, newFailure(ErrMaterialNotFound, "Material not found")
		}
		return dto.MaterialStatusResponse{}, fmt.Errorf("load material: %w", err)
	}

	var resp dto.MaterialStatusResponse
	if err := copier.Copy(&resp, &material); err != nil {
		return dto.MaterialStatusResponse{}, err
	}
	resp.Done = material.IsTerminal()
	return resp, nil
}

// loadPromptContext gathers request, submission and task details. Lookup failures only
// shrink the prompt; they never fail the run.
func (s *documentValidationService) loadPromptContext(ctx context.Context, material models.ValidationMaterial, logger zerolog.Logger) ai.PromptContext {
	var promptContext ai.PromptContext
	if material.Notes != nil {
		promptContext.StudentNotes = strings.TrimSpace(*material.Notes)
	}
	if s.lookups == nil || material.ValidationRequestID == "" {
		return promptContext
	}

	request, err := s.lookups.GetRequest(ctx, material.ValidationRequestID)
	if err != nil {
		logger.Warn().Err(err).Str("request_id", material.ValidationRequestID).Msg("validation request lookup failed")
		return promptContext
	}
	promptContext.RequestMessage = request.RequestMessage

	if request.TaskSubmissionID == nil || *request.TaskSubmissionID == "" {
		return promptContext
	}
	submission, err := s.lookups.GetSubmission(ctx, *request.TaskSubmissionID)
	if err != nil {
		logger.Warn().Err(err).Str("submission_id", *request.TaskSubmissionID).Msg("task submission lookup failed")
		return promptContext
	}
	promptContext.CompletedCount = submission.CompletedAnswerCount()

	if submission.TaskID == nil || *submission.TaskID == "" {
		return promptContext
	}
	task, err := s.lookups.GetTask(ctx, *submission.TaskID)
	if err != nil {
		logger.Warn().Err(err).Str("task_id", *submission.TaskID).Msg("task lookup failed")
		return promptContext
	}
	promptContext.TaskTitle = task.Title
	if task.Description != nil {
		promptContext.TaskDescription = *task.Description
	}
	return promptContext
}

func (s *documentValidationService) download(ctx context.Context, path string) ([]byte, error) {
	reader, err := s.store.Open(ctx, path)
	if err != nil {
		return nil, &ValidationFailure{Kind: fmt.Errorf("%w: %v", ErrDownloadFailed, err), Message: "Failed to download file"}
	}
	defer reader.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(reader, s.maxSize+1)); err != nil {
		return nil, &ValidationFailure{Kind: fmt.Errorf("%w: %v", ErrDownloadFailed, err), Message: "Failed to download file"}
	}
	if int64(buf.Len()) > s.maxSize {
		return nil, newFailure(ErrFileTooLarge, "File is too large: the maximum allowed size is %d MB", s.maxSize/(1024*1024))
	}
	return buf.Bytes(), nil
}

func (s *documentValidationService) infer(ctx context.Context, input ai.VerificationInput) (ai.VerificationReply, error) {
	inferCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.verifier.Verify(inferCtx, input)
	if err == nil {
		return reply, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(inferCtx.Err(), context.DeadlineExceeded) {
		return ai.VerificationReply{}, &ValidationFailure{
			Kind:    fmt.Errorf("%w: %v", ErrInferenceTimeout, err),
			Message: fmt.Sprintf("AI validation failed: no response within %s", s.timeout),
		}
	}

	detail := err.Error()
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		detail = apiErr.Body
		if strings.TrimSpace(detail) == "" {
			detail = fmt.Sprintf("status %d", apiErr.StatusCode)
		}
	}
	return ai.VerificationReply{}, &ValidationFailure{
		Kind:    fmt.Errorf("%w: %v", ErrInferenceFailed, err),
		Message: "AI validation failed: " + ai.Excerpt(detail, inferenceErrorExcerpt),
	}
}

// fail records the diagnostic on the material and returns the failure to the caller.
func (s *documentValidationService) fail(ctx context.Context, span trace.Span, materialID string, err error, logger zerolog.Logger) error {
	var failure *ValidationFailure
	if !errors.As(err, &failure) {
		failure = &ValidationFailure{Kind: err, Message: err.Error()}
	}

	label := failureLabel(failure.Kind)
	observability.ValidationFailures().WithLabelValues(label).Inc()
	observability.ValidationOutcomes().WithLabelValues(models.MaterialStatusError).Inc()
	span.RecordError(failure)
	span.SetStatus(codes.Error, label)

	logger.Warn().Err(failure.Kind).Str("kind", label).Msg(failure.Message)

	outcome := repository.MaterialOutcome{Status: models.MaterialStatusError, Result: failure.Message}
	if saveErr := s.materials.SaveOutcome(context.WithoutCancel(ctx), materialID, outcome); saveErr != nil {
		logger.Error().Err(saveErr).Msg("persist failure diagnostic")
		return errors.Join(failure, saveErr)
	}

	s.publish(ctx, MaterialValidatedEvent{
		MaterialID: materialID,
		Status:     models.MaterialStatusError,
		Result:     failure.Message,
	}, logger)

	return failure
}

func (s *documentValidationService) publish(ctx context.Context, event MaterialValidatedEvent, logger zerolog.Logger) {
	if s.events == nil {
		return
	}
	event.CorrelationID = middleware.CorrelationIDFromContext(ctx)
	if err := s.events.PublishMaterialValidated(context.WithoutCancel(ctx), event); err != nil {
		logger.Warn().Err(err).Msg("publish material validated event")
	}
}
