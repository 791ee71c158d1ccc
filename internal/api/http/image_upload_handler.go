package http

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"viaje-seguro-partner/internal/logger"
	"viaje-seguro-partner/internal/storage"
)

// ImageUploadHandler serves photos from the local store used in development.
// Uploads go straight to disk through storage.MockStorageService, so there is
// no write route.
type ImageUploadHandler struct {
	store storage.ObjectStore
}

func NewImageUploadHandler(store storage.ObjectStore) *ImageUploadHandler {
	return &ImageUploadHandler{store: store}
}

// HandleMockDownload streams the object stored under ?key=.
func (h *ImageUploadHandler) HandleMockDownload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}

	exists, size, err := h.store.FileExists(r.Context(), key)
	if err != nil {
		logger.Warn("Mock download failed", "key", key, "error", err)
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	file, err := h.store.ReadFile(key)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentTypeOf(key))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Mock download interrupted", "key", key, "error", err)
	}
}

func contentTypeOf(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}

// RegisterMockStorageRoutes registers the mock storage download endpoint
func RegisterMockStorageRoutes(router *mux.Router, handler *ImageUploadHandler) {
	router.HandleFunc("/api/v1/download/{key}", handler.HandleMockDownload).Methods(http.MethodGet).Name("mock_download")
}
