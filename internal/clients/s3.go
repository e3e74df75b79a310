package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

// S3SnapshotStore keeps pipeline snapshots as JSON objects in a bucket.
// PutObject replaces the object wholesale, which satisfies the same
// atomic-replace contract as the local backend.
type S3SnapshotStore struct {
	raw    *minio.Client
	bucket string
	prefix string
}

func NewS3SnapshotStore(ctx context.Context, cfg S3Config) (*S3SnapshotStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &S3SnapshotStore{
		raw:    client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (c *S3SnapshotStore) Put(ctx context.Context, name string, payload []byte) error {
	if c.raw == nil {
		return fmt.Errorf("s3 client is nil")
	}

	key := c.prefix + name
	_, err := c.raw.PutObject(ctx, c.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put object %q failed: %w", key, err)
	}

	return nil
}

func (c *S3SnapshotStore) Get(ctx context.Context, name string) ([]byte, error) {
	if c.raw == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}

	key := c.prefix + name
	obj, err := c.raw.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q failed: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %q failed: %w", key, err)
	}

	return data, nil
}
