package metadata

import (
	"context"

	"github.com/koustreak/modelerd/internal/errs"
)

// Source enumerates mapped models. Implementations return every declared
// model; abstract models are filtered by the consumer.
type Source interface {
	Models(ctx context.Context) ([]*Model, error)
}

// StaticSource serves a fixed, in-memory model list.
type StaticSource []*Model

// Models returns the list as-is.
func (s StaticSource) Models(_ context.Context) ([]*Model, error) {
	return s, nil
}

// ManifestSource loads models from a YAML manifest on every call.
type ManifestSource struct {
	Path string
}

// NewManifestSource returns a Source backed by the manifest at path.
func NewManifestSource(path string) *ManifestSource {
	return &ManifestSource{Path: path}
}

// Models reads and validates the manifest. Any failure is reported as
// ErrKindMetadataSourceUnavailable since no model data can be obtained.
func (s *ManifestSource) Models(ctx context.Context) ([]*Model, error) {
	m, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	return m.Models, nil
}

// Manifest reads the full manifest, including declared extra tables.
func (s *ManifestSource) Manifest(ctx context.Context) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindMetadataSourceUnavailable, "manifest load cancelled", err)
	}
	m, err := LoadManifest(s.Path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindMetadataSourceUnavailable, "load manifest "+s.Path, err)
	}
	return m, nil
}
