package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PhotoStore keeps uploaded photos in an S3-compatible bucket so the
// app servers stay stateless.
type PhotoStore struct {
	client *minio.Client
	bucket string
	region string
}

func NewPhotoStore(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*PhotoStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// make sure the bucket exists
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &PhotoStore{client: cli, bucket: bucket, region: region}, nil
}

// Put stores one photo under the given key.
func (s *PhotoStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store photo: %w", err)
	}
	return nil
}

// Get opens a stored photo for streaming. Callers close the reader.
func (s *PhotoStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	return obj, nil
}

// Remove deletes a stored photo. Removing a key that is already gone
// is not an error.
func (s *PhotoStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove photo: %w", err)
	}
	return nil
}
