package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const maxParallelUploads = 4

type putFunc func(ctx context.Context, key string, f File) (string, error)

// uploadBatch runs put for every file with bounded parallelism. The first
// failure cancels the rest; URLs keep the input order.
func uploadBatch(ctx context.Context, prefix string, files []File, put putFunc) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	urls := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, f := range files {
		key := objectKey(prefix, i, f.Name)
		g.Go(func() error {
			url, err := put(gctx, key, f)
			if err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func objectKey(prefix string, index int, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = "file"
	}
	return path.Join(strings.Trim(prefix, "/"), fmt.Sprintf("%02d-%s-%s", index, uuid.New().String()[:8], name))
}
