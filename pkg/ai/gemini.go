package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiConfig defines configuration options for the Gemini verifier.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Logger    zerolog.Logger
}

// geminiGenerator is the part of *genai.GenerativeModel the verifier calls.
type geminiGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiVerifier implements Verifier with Gemini inline blobs, which accept PDFs and images alike.
type GeminiVerifier struct {
	client *genai.Client
	model  geminiGenerator
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiVerifier creates the Gemini client; Close must be called on shutdown.
func NewGeminiVerifier(ctx context.Context, cfg GeminiConfig) (*GeminiVerifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	model.ResponseMIMEType = "application/json"

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &GeminiVerifier{
		client: client,
		model:  model,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-proof-api/pkg/ai/gemini"),
		logger: logger.With().Str("component", "gemini_verifier").Logger(),
	}, nil
}

// Verify sends the blob and prompt and returns the first text part of the first candidate.
func (v *GeminiVerifier) Verify(parent context.Context, input VerificationInput) (VerificationReply, error) {
	ctx, span := v.tracer.Start(parent, "gemini.verify", trace.WithAttributes(
		attribute.String("model", v.cfg.Model),
		attribute.String("content.kind", string(input.Document.Kind)),
	))
	defer span.End()

	start := time.Now()
	resp, err := v.model.GenerateContent(ctx,
		genai.Blob{MIMEType: input.Document.MediaType, Data: input.Document.Data},
		genai.Text(input.Prompt),
	)
	aiDuration.WithLabelValues("gemini", v.cfg.Model).Observe(time.Since(start).Seconds())
	if err == nil {
		var text string
		text, err = geminiText(resp)
		if err == nil {
			return VerificationReply{Text: text, Model: v.cfg.Model, Provider: "gemini"}, nil
		}
	} else {
		err = mapGeminiError(err)
	}

	aiFailures.WithLabelValues("gemini", v.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	v.logger.Warn().Err(err).Msg("gemini verification failed")
	return VerificationReply{}, err
}

func mapGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("gemini verify: %w", err)
	}
	return &APIError{Provider: "gemini", Body: err.Error()}
}

// geminiText returns the first text part of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if value, ok := part.(genai.Text); ok {
			return string(value), nil
		}
	}
	return "", nil
}

// Close releases the underlying client connection.
func (v *GeminiVerifier) Close() error {
	if v.client == nil {
		return nil
	}
	return v.client.Close()
}
