// Package minio provides a MinIO implementation of filestore.Store.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := store.PutObject(ctx, "erd", "diagrams/latest.mmd", r, size, filestore.PutOptions{})
package minio

import (
	"context"
	"io"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/filestore"
)

// Driver is a MinIO implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	region string
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "minio endpoint is required")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, region: cfg.Region}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// Ping verifies the MinIO server is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.ListBuckets(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op for MinIO; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// EnsureBucket creates bucket when it does not exist.
func (d *Driver) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := d.client.BucketExists(ctx, bucket)
	if err != nil {
		return mapError(err, "failed to check bucket "+bucket)
	}
	if exists {
		return nil
	}
	if err := d.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{Region: d.region}); err != nil && !alreadyOwned(err) {
		return mapError(err, "failed to create bucket "+bucket)
	}
	return nil
}

// PutObject uploads size bytes from r to key inside bucket.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	up, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}

	return &filestore.ObjectInfo{
		Key:          up.Key,
		Size:         up.Size,
		ContentType:  opts.ContentType,
		ETag:         up.ETag,
		LastModified: up.LastModified,
	}, nil
}

// PresignGetURL returns a time-limited public download URL for the object.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}

var _ filestore.Store = (*Driver)(nil)
