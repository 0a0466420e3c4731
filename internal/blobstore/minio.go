package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps objects in an S3-compatible bucket under
// "{uploadDir}/{tier}/{fileName}". Path-style lookup is forced so a local
// emulator behind an endpoint override works the same as the real service.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	uploadDir string
}

func NewMinio(endpoint, accessKey, secretKey, region, bucket, uploadDir string, useSSL bool) (*MinioStore, error) {
	const op = "blobstore.NewMinio"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return &MinioStore{client: client, bucket: bucket, uploadDir: uploadDir}, nil
}

func (s *MinioStore) objectName(key string) string {
	return s.uploadDir + "/" + key
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	const op = "blobstore.MinioStore.Put"

	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "blobstore.MinioStore.Get"

	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w: %s", op, ErrNotFound, key)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return data, nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	const op = "blobstore.MinioStore.Remove"

	err := s.client.RemoveObject(ctx, s.bucket, s.objectName(key), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return nil
}
