package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ContentKind tells the provider how to present the binary payload.
type ContentKind string

const (
	// ContentKindDocument is used for PDFs.
	ContentKindDocument ContentKind = "document"
	// ContentKindImage is used for PNG, JPEG, WEBP and GIF.
	ContentKindImage ContentKind = "image"
)

// ErrUnsupportedDocument indicates the provider cannot read the given content kind.
var ErrUnsupportedDocument = errors.New("content kind not supported by provider")

// Document is a validated upload ready to be sent to a model.
type Document struct {
	Kind      ContentKind
	MediaType string
	Data      []byte
}

// VerificationInput pairs the student's upload with the instruction prompt.
type VerificationInput struct {
	Document Document
	Prompt   string
}

// VerificationReply is the raw text answer of the model.
type VerificationReply struct {
	Text     string
	Model    string
	Provider string
}

// Verifier describes a multimodal model able to inspect an uploaded document.
type Verifier interface {
	Verify(ctx context.Context, input VerificationInput) (VerificationReply, error)
}

// APIError is returned when the inference service answers with a non-2xx status.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %s", e.Provider, e.Body)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Excerpt trims s and caps it to limit runes, appending an ellipsis when cut.
func Excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
