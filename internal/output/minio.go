package output

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore puts artifacts into any S3-compatible endpoint.
type MinioStore struct {
	Endpoint string
	Bucket   string
	Client   *minio.Client
}

// NewMinioStore builds a static-credential client for endpoint.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStore{Endpoint: endpoint, Bucket: bucket, Client: client}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.Client.PutObject(ctx, s.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", key, s.Endpoint, err)
	}
	return nil
}

func (s *MinioStore) Location(key string) string {
	return "s3://" + s.Bucket + "/" + key + " @ " + s.Endpoint
}
