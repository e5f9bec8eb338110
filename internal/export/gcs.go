// internal/export/gcs.go
package export

import (
	"context"

	"cloud.google.com/go/storage"
)

// GCSWriter uploads chunks to a Google Cloud Storage bucket. The
// bucket must already exist.
type GCSWriter struct {
	client *storage.Client
	bucket string
}

func NewGCSWriter(ctx context.Context, bucket string) (*GCSWriter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSWriter{client: client, bucket: bucket}, nil
}

func (w *GCSWriter) Upload(ctx context.Context, key string, body []byte) error {
	writer := w.client.Bucket(w.bucket).Object(key).NewWriter(ctx)
	if _, err := writer.Write(body); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func (w *GCSWriter) Close() error {
	return w.client.Close()
}
