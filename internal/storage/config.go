package storage

import (
	"context"
	"fmt"
)

// Config holds storage configuration
type Config struct {
	Type            string // "mock" or "firebase"
	UploadDir       string // Directory for mock storage
	BaseURL         string // Server base URL for generating mock URLs
	Bucket          string
	CredentialsFile string
}

// New returns the uploader selected by cfg.Type. The mock service is also
// returned so its download routes can be mounted; it is nil for firebase.
func New(ctx context.Context, cfg Config) (Uploader, *MockStorageService, error) {
	switch cfg.Type {
	case "", "mock":
		mock, err := NewMockStorageService(cfg.BaseURL, cfg.UploadDir)
		if err != nil {
			return nil, nil, err
		}
		return mock, mock, nil
	case "firebase":
		if cfg.Bucket == "" {
			return nil, nil, fmt.Errorf("storage bucket is required for firebase storage")
		}
		up, err := NewFirebaseUploader(ctx, cfg.Bucket, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return up, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
