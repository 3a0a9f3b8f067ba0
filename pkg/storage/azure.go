package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/rs/zerolog"
)

// AzureConfig describes the blob container holding materials.
// A connection string wins over account/key credentials. A ServiceURL alone is used
// anonymously, which suits SAS URLs and the local emulator.
type AzureConfig struct {
	ConnectionString string
	ServiceURL       string
	Account          string
	Key              string
	Container        string
}

// AzureStore reads blobs from one Azure Blob Storage container.
type AzureStore struct {
	client    *azblob.Client
	container string
	logger    zerolog.Logger
}

// NewAzureStore creates a blob client for the configured container.
func NewAzureStore(cfg AzureConfig, logger zerolog.Logger) (*AzureStore, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("azure blob container must be provided")
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.Account != "" && cfg.Key != "":
		var credential *azblob.SharedKeyCredential
		credential, err = azblob.NewSharedKeyCredential(cfg.Account, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("build shared key credential: %w", err)
		}
		serviceURL := cfg.ServiceURL
		if serviceURL == "" {
			serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	case cfg.ServiceURL != "":
		client, err = azblob.NewClientWithNoCredential(cfg.ServiceURL, nil)
	default:
		return nil, fmt.Errorf("azure connection string, account/key or service url must be provided")
	}
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	return &AzureStore{
		client:    client,
		container: cfg.Container,
		logger:    logger.With().Str("component", "azure_store").Logger(),
	}, nil
}

// Open streams the blob stored under path.
func (a *AzureStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	blobName := strings.TrimLeft(path, "/")
	resp, err := a.client.DownloadStream(ctx, a.container, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("azure blob %q: %w", blobName, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("download azure blob %q: %w", blobName, err)
	}
	return resp.Body, nil
}
