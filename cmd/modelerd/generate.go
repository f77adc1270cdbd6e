package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/koustreak/modelerd/internal/config"
	"github.com/koustreak/modelerd/internal/erd"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/filestore"
	"github.com/koustreak/modelerd/internal/filestore/minio"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/mermaid"
)

// generate runs one build, writes it to the configured output and optionally
// publishes it.
func generate(ctx context.Context, cfg *config.Config, log *logger.Logger, stdout io.Writer) error {
	gen, cleanup, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := gen.Build(ctx)
	if err != nil {
		return err
	}

	body, contentType, err := encode(res, cfg.Output.Format)
	if err != nil {
		return err
	}

	if err := writeOutput(cfg.Output, body, stdout); err != nil {
		return err
	}

	if cfg.Publish.Enabled {
		store, err := minio.New(ctx, &cfg.Publish)
		if err != nil {
			return err
		}
		defer store.Close()
		return publish(ctx, store, &cfg.Publish, res.BuildID, body, contentType, log)
	}
	return nil
}

// encode renders res in the requested format.
func encode(res *erd.Result, format string) ([]byte, string, error) {
	switch format {
	case config.FormatJSON:
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, "", errs.Wrap(errs.ErrKindInvalidInput, "failed to encode result", err)
		}
		return append(b, '\n'), "application/json", nil
	default:
		var buf bytes.Buffer
		if err := mermaid.Emit(&buf, res.Tables, res.Relationships); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), mermaid.ContentType, nil
	}
}

func writeOutput(out config.OutputConfig, body []byte, stdout io.Writer) error {
	if out.Stdout() {
		_, err := stdout.Write(body)
		return err
	}
	if err := os.WriteFile(out.Path, body, 0o644); err != nil {
		return errs.Wrap(errs.ErrKindPermissionDenied, "failed to write "+out.Path, err)
	}
	return nil
}

func publish(ctx context.Context, store filestore.Store, cfg *filestore.Config, buildID string, body []byte, contentType string, log *logger.Logger) error {
	pub, err := filestore.NewPublisher(store, cfg).Publish(ctx, buildID, body, contentType)
	if err != nil {
		log.ErrorWith("publish failed", err, map[string]any{"bucket": cfg.Bucket})
		return err
	}
	log.InfoWith("diagram published", map[string]any{
		"bucket": pub.Bucket,
		"key":    pub.Key,
		"etag":   pub.ETag,
		"size":   pub.Size,
		"url":    pub.URL,
	})
	return nil
}
