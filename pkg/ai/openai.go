package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI verifier.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIVerifier implements Verifier against the OpenAI chat completion API.
// Only images are accepted; PDFs yield ErrUnsupportedDocument.
type OpenAIVerifier struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIVerifier builds a new verifier using the provided configuration.
func NewOpenAIVerifier(cfg OpenAIConfig) (*OpenAIVerifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIVerifier{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-proof-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_verifier").Logger(),
	}, nil
}

// Verify sends the image and prompt to OpenAI and returns the first choice text.
func (v *OpenAIVerifier) Verify(parent context.Context, input VerificationInput) (VerificationReply, error) {
	ctx, span := v.tracer.Start(parent, "openai.verify", trace.WithAttributes(
		attribute.String("model", v.cfg.Model),
		attribute.String("content.kind", string(input.Document.Kind)),
	))
	defer span.End()

	if input.Document.Kind != ContentKindImage {
		err := fmt.Errorf("openai cannot read %s content: %w", input.Document.MediaType, ErrUnsupportedDocument)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VerificationReply{}, err
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", input.Document.MediaType, base64.StdEncoding.EncodeToString(input.Document.Data))
	request := openai.ChatCompletionRequest{
		Model:       v.cfg.Model,
		MaxTokens:   v.cfg.MaxTokens,
		Temperature: v.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: input.Prompt,
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := v.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues("openai", v.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues("openai", v.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VerificationReply{}, translateOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues("openai", v.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VerificationReply{}, err
	}

	v.logger.Debug().Int("prompt_tokens", resp.Usage.PromptTokens).Int("completion_tokens", resp.Usage.CompletionTokens).Msg("openai verification completed")

	return VerificationReply{
		Text:     resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Provider: "openai",
	}, nil
}

func translateOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("openai verify: %w", err)
}
