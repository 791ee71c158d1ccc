package storage

import (
	"context"
	"io"
)

// File is one object to upload. Name is the base name the object keeps under
// the batch prefix.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader stores a batch of files under a common prefix and returns one
// publicly readable URL per file, in the order the files were given.
type Uploader interface {
	UploadFiles(ctx context.Context, prefix string, files []File) ([]string, error)
}

// ObjectStore is implemented by backends that also serve their objects from
// this process (the local mock).
type ObjectStore interface {
	ReadFile(key string) (io.ReadCloser, error)
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)
}
