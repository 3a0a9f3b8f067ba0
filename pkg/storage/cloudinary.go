package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore resolves a material path to a Cloudinary asset and downloads its secure URL.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	http   *http.Client
	logger zerolog.Logger
}

// NewCloudinaryStore constructs a Cloudinary-backed store.
func NewCloudinaryStore(cfg CloudinaryConfig, logger zerolog.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryStore{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		http:   &http.Client{Timeout: time.Minute},
		logger: logger.With().Str("component", "cloudinary_store").Logger(),
	}, nil
}

// Open looks the asset up through the Admin API and streams it from its secure URL.
func (s *CloudinaryStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	publicID := publicIDFromPath(s.folder, path)

	asset, err := s.client.Admin.Asset(ctx, admin.AssetParams{PublicID: publicID})
	if err != nil {
		return nil, fmt.Errorf("lookup cloudinary asset %q: %w", publicID, err)
	}
	if asset.Error.Message != "" {
		if strings.Contains(strings.ToLower(asset.Error.Message), "not found") {
			return nil, fmt.Errorf("cloudinary asset %q: %w", publicID, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("lookup cloudinary asset %q: %s", publicID, asset.Error.Message)
	}
	if asset.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary asset %q: %w", publicID, ErrObjectNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.SecureURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cloudinary asset %q: %w", publicID, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("cloudinary asset %q: %w", publicID, ErrObjectNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch cloudinary asset %q: status %d", publicID, resp.StatusCode)
	}

	s.logger.Debug().Str("public_id", publicID).Msg("cloudinary asset opened")
	return resp.Body, nil
}

// publicIDFromPath drops the extension, since Cloudinary stores image and PDF public ids without it.
func publicIDFromPath(folder, path string) string {
	trimmed := strings.Trim(path, "/")
	base := strings.TrimSuffix(trimmed, filepath.Ext(trimmed))
	if folder == "" || strings.HasPrefix(base, folder+"/") {
		return base
	}
	return folder + "/" + base
}
