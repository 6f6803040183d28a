// storage.go
// Cloud Storage-backed implementation of the Blobs contract.

package remote

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// StorageClient uploads blobs to a single bucket and hands back public
// retrieval URLs.
type StorageClient struct {
	bucket string
	client *storage.Client
}

var _ Blobs = (*StorageClient)(nil)

// NewStorageClient initializes a Cloud Storage client for the given bucket.
func NewStorageClient(ctx context.Context, bucket, credentialsPath string) (*StorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Storage client: %w", err)
	}

	log.Printf("✅ Connected to Storage bucket: %s", bucket)

	return &StorageClient{bucket: bucket, client: client}, nil
}

// Close closes the Storage client.
func (s *StorageClient) Close() error {
	return s.client.Close()
}

// Upload writes data to objectPath (write-once per path) and returns the
// public URL of the stored object.
func (s *StorageClient) Upload(ctx context.Context, objectPath string, data []byte) (string, error) {
	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = http.DetectContentType(data)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", &UploadError{Object: objectPath, Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &UploadError{Object: objectPath, Err: err}
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectPath), nil
}
