package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ErrObjectNotFound indicates no object exists at the requested path.
var ErrObjectNotFound = errors.New("object not found")

// Store opens stored validation materials by their storage path.
type Store interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Config selects and configures a Store implementation.
type Config struct {
	Driver     string
	Bucket     string
	S3         S3Config
	Azure      AzureConfig
	Cloudinary CloudinaryConfig
	LocalRoot  string
}

// New builds the store named by cfg.Driver.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var (
		store Store
		err   error
	)
	switch driver {
	case "s3", "":
		s3cfg := cfg.S3
		if s3cfg.Bucket == "" {
			s3cfg.Bucket = cfg.Bucket
		}
		store, err = NewS3Store(ctx, s3cfg, logger)
	case "azure":
		azcfg := cfg.Azure
		if azcfg.Container == "" {
			azcfg.Container = cfg.Bucket
		}
		store, err = NewAzureStore(azcfg, logger)
	case "cloudinary":
		store, err = NewCloudinaryStore(cfg.Cloudinary, logger)
	case "local":
		store, err = NewLocalStore(cfg.LocalRoot)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
