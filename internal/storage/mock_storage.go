package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"viaje-seguro-partner/internal/logger"
)

// MockStorageService keeps delivery photos on the local filesystem and serves
// them back through this process. Used in development and tests instead of a
// Firebase bucket.
type MockStorageService struct {
	baseURL   string // Server URL (e.g., "http://localhost:8080")
	imagesDir string
}

// NewMockStorageService creates the upload directory if needed.
func NewMockStorageService(baseURL, uploadsDir string) (*MockStorageService, error) {
	imagesDir := filepath.Join(uploadsDir, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	return &MockStorageService{
		baseURL:   baseURL,
		imagesDir: imagesDir,
	}, nil
}

// UploadFiles writes every file below prefix and returns the download URLs.
func (m *MockStorageService) UploadFiles(ctx context.Context, prefix string, files []File) ([]string, error) {
	logger.ExternalServiceCall("mock_storage", "upload_files", "prefix", prefix, "count", len(files))
	urls, err := uploadBatch(ctx, prefix, files, func(ctx context.Context, key string, f File) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := m.SaveFile(key, bytes.NewReader(f.Data)); err != nil {
			return "", err
		}
		return m.DownloadURL(key), nil
	})
	logger.ExternalServiceResult("mock_storage", "upload_files", err, "prefix", prefix)
	return urls, err
}

// DownloadURL points at the download route registered by the HTTP API.
func (m *MockStorageService) DownloadURL(key string) string {
	return fmt.Sprintf("%s/api/v1/download/%s?key=%s", m.baseURL, encodeKey(key), url.QueryEscape(key))
}

// FileExists checks if file exists in local filesystem
func (m *MockStorageService) FileExists(ctx context.Context, key string) (bool, int64, error) {
	info, err := os.Stat(m.localPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, info.Size(), nil
}

// SaveFile saves uploaded file to local filesystem
func (m *MockStorageService) SaveFile(key string, reader io.Reader) error {
	fullPath := m.localPath(key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ReadFile reads file from local filesystem
func (m *MockStorageService) ReadFile(key string) (io.ReadCloser, error) {
	file, err := os.Open(m.localPath(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// localPath keeps every key inside the images directory.
func (m *MockStorageService) localPath(key string) string {
	return filepath.Join(m.imagesDir, filepath.Clean("/"+key))
}

// encodeKey creates a URL-safe hash of the key
func encodeKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16])
}
