// Package blob archives raw script uploads in object storage.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps the original bytes of every imported script so a
// botched segmentation can always be redone from source.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and ensures the bucket exists.
func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to minio: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Store{client: client, bucket: bucket}, nil
}

func uploadKey(scriptID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s", scriptID, filename)
}

// SaveUpload stores the original upload bytes for a script.
func (s *Store) SaveUpload(ctx context.Context, scriptID, filename, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, uploadKey(scriptID, filename),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put upload: %w", err)
	}
	return nil
}

// GetUpload reads back a stored upload.
func (s *Store) GetUpload(ctx context.Context, scriptID, filename string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, uploadKey(scriptID, filename), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
