package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-5"
)

// AnthropicConfig defines configuration options for the Anthropic verifier.
type AnthropicConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// AnthropicVerifier implements Verifier against the Anthropic Messages API.
type AnthropicVerifier struct {
	cfg    AnthropicConfig
	client anthropic.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewAnthropicVerifier builds a verifier; the API key is mandatory.
func NewAnthropicVerifier(cfg AnthropicConfig) (*AnthropicVerifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	// One attempt per run; the caller's deadline bounds the whole call.
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &AnthropicVerifier{
		cfg:    cfg,
		client: client,
		tracer: otel.Tracer("github.com/noah-isme/gema-proof-api/pkg/ai/anthropic"),
		logger: logger.With().Str("component", "anthropic_verifier").Logger(),
	}, nil
}

// Verify sends the document and prompt as a single user message and returns the first content text.
func (v *AnthropicVerifier) Verify(parent context.Context, input VerificationInput) (VerificationReply, error) {
	ctx, span := v.tracer.Start(parent, "anthropic.verify", trace.WithAttributes(
		attribute.String("model", v.cfg.Model),
		attribute.String("content.kind", string(input.Document.Kind)),
		attribute.Int("content.bytes", len(input.Document.Data)),
	))
	defer span.End()

	start := time.Now()
	reply, err := v.send(ctx, input)
	aiDuration.WithLabelValues("anthropic", v.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues("anthropic", v.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VerificationReply{}, err
	}
	return reply, nil
}

func (v *AnthropicVerifier) send(ctx context.Context, input VerificationInput) (VerificationReply, error) {
	encoded := base64.StdEncoding.EncodeToString(input.Document.Data)

	var documentBlock anthropic.ContentBlockParamUnion
	if input.Document.Kind == ContentKindDocument {
		documentBlock = anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded})
	} else {
		documentBlock = anthropic.NewImageBlockBase64(input.Document.MediaType, encoded)
	}

	message, err := v.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(v.cfg.Model),
		MaxTokens: int64(v.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(documentBlock, anthropic.NewTextBlock(input.Prompt)),
		},
	})
	if err != nil {
		var sdkErr *anthropic.Error
		if errors.As(err, &sdkErr) {
			body := sdkErr.RawJSON()
			if strings.TrimSpace(body) == "" {
				body = sdkErr.Error()
			}
			v.logger.Warn().Int("status", sdkErr.StatusCode).Str("body", Excerpt(body, 500)).Msg("anthropic returned an error")
			return VerificationReply{}, &APIError{Provider: "anthropic", StatusCode: sdkErr.StatusCode, Body: body}
		}
		return VerificationReply{}, fmt.Errorf("anthropic request: %w", err)
	}

	text := ""
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	model := string(message.Model)
	if model == "" {
		model = v.cfg.Model
	}

	return VerificationReply{Text: text, Model: model, Provider: "anthropic"}, nil
}
