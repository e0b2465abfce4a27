package asset

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBucket adapts a MinIO (or any S3-compatible) client to Bucket.
type MinioBucket struct {
	client *minio.Client
}

func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

func NewMinioBucket(client *minio.Client) *MinioBucket {
	return &MinioBucket{client: client}
}

// EnsureBuckets creates any missing bucket.
func (m *MinioBucket) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, b := range buckets {
		exists, err := m.client.BucketExists(ctx, b)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", b, err)
		}
		if exists {
			continue
		}
		if err := m.client.MakeBucket(ctx, b, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", b, err)
		}
	}
	return nil
}

func (m *MinioBucket) Put(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (m *MinioBucket) Get(ctx context.Context, bucket, object string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only shows up on first read.
	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}
	return content, nil
}

func translate(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %v", ErrAssetNotFound, err)
	}
	return err
}
