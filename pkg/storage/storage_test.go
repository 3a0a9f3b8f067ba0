package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreOpen(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "student", "req"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "student", "req", "proof.pdf"), []byte("%PDF-1.4"), 0o600))

	store, err := NewLocalStore(root)
	require.NoError(t, err)

	reader, err := store.Open(context.Background(), "student/req/proof.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Equal(t, "%PDF-1.4", string(data))

	_, err = store.Open(context.Background(), "student/req/missing.pdf")
	require.ErrorIs(t, err, ErrObjectNotFound)

	_, err = store.Open(context.Background(), "../../etc/passwd")
	require.ErrorIs(t, err, ErrObjectNotFound, "traversal stays inside the root")
}

func TestNewLocalStoreRequiresDirectory(t *testing.T) {
	_, err := NewLocalStore("")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = NewLocalStore(file)
	require.Error(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "ftp"}, zerolog.Nop())
	require.Error(t, err)
}

func TestNewBuildsLocalStore(t *testing.T) {
	store, err := New(context.Background(), Config{Driver: "local", LocalRoot: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &LocalStore{}, store)
}

func TestS3StoreOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/validation-materials/materials/u1/r1/proof.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 0x50, 0x4E, 0x47})
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
		}
	}))
	defer server.Close()

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "validation-materials",
		Prefix:          "materials",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		ForcePathStyle:  true,
	}, zerolog.Nop())
	require.NoError(t, err)

	reader, err := store.Open(context.Background(), "u1/r1/proof.png")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, data)

	_, err = store.Open(context.Background(), "u1/r1/missing.png")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestAzureStoreOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/validation-materials/u1/r1/proof.pdf" {
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Length", "8")
			_, _ = w.Write([]byte("%PDF-1.7"))
			return
		}
		w.Header().Set("x-ms-error-code", "BlobNotFound")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store, err := NewAzureStore(AzureConfig{ServiceURL: server.URL + "/", Container: "validation-materials"}, zerolog.Nop())
	require.NoError(t, err)

	reader, err := store.Open(context.Background(), "/u1/r1/proof.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Equal(t, "%PDF-1.7", string(data))

	_, err = store.Open(context.Background(), "u1/r1/missing.pdf")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewAzureStoreRequiresCredentials(t *testing.T) {
	_, err := NewAzureStore(AzureConfig{}, zerolog.Nop())
	require.ErrorContains(t, err, "container")

	_, err = NewAzureStore(AzureConfig{Container: "validation-materials"}, zerolog.Nop())
	require.ErrorContains(t, err, "service url")
}

func TestPublicIDFromPath(t *testing.T) {
	require.Equal(t, "u1/r1/123_proof", publicIDFromPath("", "u1/r1/123_proof.pdf"))
	require.Equal(t, "validation/u1/proof", publicIDFromPath("validation", "/u1/proof.png"))
	require.Equal(t, "validation/u1/proof", publicIDFromPath("validation", "validation/u1/proof.png"))
}
