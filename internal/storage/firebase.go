package storage

import (
	"context"
	"fmt"
	"net/url"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"viaje-seguro-partner/internal/logger"
)

// FirebaseUploader writes objects to the Firebase Storage bucket of the
// project and returns token-protected download URLs, the same URLs the
// Firebase web SDK hands out.
type FirebaseUploader struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewFirebaseUploader builds the client from a service account file. An empty
// credentialsFile falls back to application default credentials.
func NewFirebaseUploader(ctx context.Context, bucketName, credentialsFile string) (*FirebaseUploader, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase storage: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %q: %w", bucketName, err)
	}

	return &FirebaseUploader{bucket: bucket, bucketName: bucketName}, nil
}

func (f *FirebaseUploader) UploadFiles(ctx context.Context, prefix string, files []File) ([]string, error) {
	logger.ExternalServiceCall("firebase_storage", "upload_files", "prefix", prefix, "count", len(files))
	urls, err := uploadBatch(ctx, prefix, files, f.put)
	logger.ExternalServiceResult("firebase_storage", "upload_files", err, "prefix", prefix)
	return urls, err
}

func (f *FirebaseUploader) put(ctx context.Context, key string, file File) (string, error) {
	token := uuid.New().String()

	w := f.bucket.Object(key).NewWriter(ctx)
	w.ContentType = file.ContentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}
	if _, err := w.Write(file.Data); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return downloadURL(f.bucketName, key, token), nil
}

func downloadURL(bucket, key, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(key), token)
}
