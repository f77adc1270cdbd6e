// Package filestore publishes rendered diagrams to object storage.
//
// All providers implement the Store interface. Callers depend only on this
// package, never on a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	pub, err := filestore.NewPublisher(store, cfg).Publish(ctx, buildID, diagram, "text/plain")
package filestore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/koustreak/modelerd/internal/errs"
)

// Store is the single interface all file storage providers must implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// EnsureBucket creates bucket if it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject uploads size bytes from r to key inside bucket.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (*ObjectInfo, error)

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the object at key inside bucket without credentials.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Publisher uploads build artefacts under the configured bucket and key.
type Publisher struct {
	store Store
	cfg   *Config
}

// NewPublisher returns a Publisher writing through store.
func NewPublisher(store Store, cfg *Config) *Publisher {
	return &Publisher{store: store, cfg: cfg}
}

// ObjectKey expands the configured key for buildID.
func (p *Publisher) ObjectKey(buildID string) string {
	return strings.ReplaceAll(p.cfg.Key, BuildIDPlaceholder, buildID)
}

// Publish uploads body and returns where it landed, including a presigned
// download URL when URLTTL is positive.
func (p *Publisher) Publish(ctx context.Context, buildID string, body []byte, contentType string) (*Publication, error) {
	if p.cfg.Bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "publish bucket is not configured")
	}
	key := p.ObjectKey(buildID)
	if key == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "publish key is not configured")
	}

	if err := p.store.EnsureBucket(ctx, p.cfg.Bucket); err != nil {
		return nil, err
	}

	info, err := p.store.PutObject(ctx, p.cfg.Bucket, key, bytes.NewReader(body), int64(len(body)), PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"build-id": buildID},
	})
	if err != nil {
		return nil, err
	}

	pub := &Publication{
		Bucket: p.cfg.Bucket,
		Key:    key,
		ETag:   info.ETag,
		Size:   info.Size,
	}
	if p.cfg.URLTTL > 0 {
		url, err := p.store.PresignGetURL(ctx, p.cfg.Bucket, key, p.cfg.URLTTL)
		if err != nil {
			return nil, err
		}
		pub.URL = url
	}
	return pub, nil
}
