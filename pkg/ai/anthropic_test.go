package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAnthropicVerifierRequiresKey(t *testing.T) {
	_, err := NewAnthropicVerifier(AnthropicConfig{})
	require.Error(t, err)
}

func TestAnthropicVerifierSendsDocumentBlock(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"claude-sonnet-4-5","content":[{"type":"text","text":"{\"approved\":true,\"reasoning\":\"ok\"}"}]}`))
	}))
	defer server.Close()

	verifier, err := NewAnthropicVerifier(AnthropicConfig{APIKey: "secret", BaseURL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	data := []byte("%PDF-1.7 body")
	reply, err := verifier.Verify(context.Background(), VerificationInput{
		Document: Document{Kind: ContentKindDocument, MediaType: "application/pdf", Data: data},
		Prompt:   "check it",
	})
	require.NoError(t, err)
	require.Equal(t, `{"approved":true,"reasoning":"ok"}`, reply.Text)
	require.Equal(t, "anthropic", reply.Provider)

	require.Equal(t, "claude-sonnet-4-5", captured["model"])
	require.EqualValues(t, 1024, captured["max_tokens"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 1)
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)

	block := content[0].(map[string]interface{})
	require.Equal(t, "document", block["type"])
	source := block["source"].(map[string]interface{})
	require.Equal(t, "base64", source["type"])
	require.Equal(t, "application/pdf", source["media_type"])
	require.Equal(t, base64.StdEncoding.EncodeToString(data), source["data"])

	text := content[1].(map[string]interface{})
	require.Equal(t, "text", text["type"])
	require.Equal(t, "check it", text["text"])
}

func TestAnthropicVerifierUsesImageBlockForImages(t *testing.T) {
	var blockType, mediaType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content []struct {
					Type   string `json:"type"`
					Source struct {
						MediaType string `json:"media_type"`
					} `json:"source"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		blockType = body.Messages[0].Content[0].Type
		mediaType = body.Messages[0].Content[0].Source.MediaType
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"message","role":"assistant","content":[{"type":"text","text":"hi"}]}`))
	}))
	defer server.Close()

	verifier, err := NewAnthropicVerifier(AnthropicConfig{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	reply, err := verifier.Verify(context.Background(), VerificationInput{
		Document: Document{Kind: ContentKindImage, MediaType: "image/png", Data: []byte{0x89, 0x50, 0x4E, 0x47}},
	})
	require.NoError(t, err)
	require.Equal(t, "image", blockType)
	require.Equal(t, "image/png", mediaType)
	require.Equal(t, "hi", reply.Text)
	require.Equal(t, "claude-sonnet-4-5", reply.Model)
}

func TestAnthropicVerifierNon2xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"` + strings.Repeat("x", 300) + `"}}`))
	}))
	defer server.Close()

	verifier, err := NewAnthropicVerifier(AnthropicConfig{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), VerificationInput{Document: Document{Kind: ContentKindImage, MediaType: "image/gif"}})
	require.Error(t, err)
	require.EqualValues(t, 1, calls.Load(), "rate limited calls are not retried")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "rate_limit_error")
}

func TestAnthropicVerifierEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"message","role":"assistant","content":[]}`))
	}))
	defer server.Close()

	verifier, err := NewAnthropicVerifier(AnthropicConfig{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	reply, err := verifier.Verify(context.Background(), VerificationInput{Document: Document{Kind: ContentKindImage, MediaType: "image/png"}})
	require.NoError(t, err)
	require.Empty(t, reply.Text)
}
