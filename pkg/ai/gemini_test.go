package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"google.golang.org/api/googleapi"
)

type geminiGeneratorStub struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (g *geminiGeneratorStub) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	g.parts = parts
	return g.resp, g.err
}

func newStubGemini(stub *geminiGeneratorStub) *GeminiVerifier {
	return &GeminiVerifier{
		model:  stub,
		cfg:    GeminiConfig{Model: "gemini-test"},
		tracer: otel.Tracer("gemini-test"),
		logger: zerolog.Nop(),
	}
}

func TestGeminiVerifierRequiresKey(t *testing.T) {
	_, err := NewGeminiVerifier(context.Background(), GeminiConfig{})
	require.Error(t, err)
}

func TestGeminiVerifierSendsBlobAndPrompt(t *testing.T) {
	stub := &geminiGeneratorStub{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"approved":true,"reasoning":"ok"}`)}}}},
	}}
	verifier := newStubGemini(stub)

	data := []byte("%PDF-1.7 body")
	reply, err := verifier.Verify(context.Background(), VerificationInput{
		Document: Document{Kind: ContentKindDocument, MediaType: "application/pdf", Data: data},
		Prompt:   "check it",
	})
	require.NoError(t, err)
	require.Equal(t, `{"approved":true,"reasoning":"ok"}`, reply.Text)
	require.Equal(t, "gemini", reply.Provider)
	require.Equal(t, "gemini-test", reply.Model)

	require.Len(t, stub.parts, 2)
	require.Equal(t, genai.Blob{MIMEType: "application/pdf", Data: data}, stub.parts[0])
	require.Equal(t, genai.Text("check it"), stub.parts[1])
}

func TestGeminiVerifierMapsErrors(t *testing.T) {
	verifier := newStubGemini(&geminiGeneratorStub{err: &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota exhausted"}})
	_, err := verifier.Verify(context.Background(), VerificationInput{Document: Document{Kind: ContentKindImage, MediaType: "image/png"}})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "quota exhausted", apiErr.Body)

	verifier = newStubGemini(&geminiGeneratorStub{err: context.DeadlineExceeded})
	_, err = verifier.Verify(context.Background(), VerificationInput{Document: Document{Kind: ContentKindImage, MediaType: "image/png"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, errors.As(err, &apiErr))

	verifier = newStubGemini(&geminiGeneratorStub{err: errors.New("connection reset")})
	_, err = verifier.Verify(context.Background(), VerificationInput{Document: Document{Kind: ContentKindImage, MediaType: "image/png"}})
	require.True(t, errors.As(err, &apiErr))
	require.Zero(t, apiErr.StatusCode)
	require.Equal(t, "connection reset", apiErr.Body)
}

func TestGeminiVerifierEmptyCandidates(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		{},
		{Candidates: []*genai.Candidate{{}}},
	} {
		verifier := newStubGemini(&geminiGeneratorStub{resp: resp})
		_, err := verifier.Verify(context.Background(), VerificationInput{Document: Document{Kind: ContentKindImage, MediaType: "image/png"}})
		require.ErrorContains(t, err, "no candidates")
	}

	verifier := newStubGemini(&geminiGeneratorStub{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}}},
	}})
	reply, err := verifier.Verify(context.Background(), VerificationInput{Document: Document{Kind: ContentKindImage, MediaType: "image/png"}})
	require.NoError(t, err)
	require.Empty(t, reply.Text)
}
