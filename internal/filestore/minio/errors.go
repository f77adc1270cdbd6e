package minio

import (
	"context"
	"errors"
	"net/http"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/koustreak/modelerd/internal/errs"
)

// s3Kinds classifies S3 error codes. Codes take precedence over the HTTP
// status because MinIO reports some of them with a generic 400 or 500.
var s3Kinds = map[string]errs.ErrKind{
	"NoSuchBucket":          errs.ErrKindNotFound,
	"NoSuchKey":             errs.ErrKindNotFound,
	"NoSuchUpload":          errs.ErrKindNotFound,
	"AccessDenied":          errs.ErrKindPermissionDenied,
	"InvalidAccessKeyId":    errs.ErrKindPermissionDenied,
	"SignatureDoesNotMatch": errs.ErrKindPermissionDenied,
	"InvalidBucketName":     errs.ErrKindInvalidInput,
	"InvalidObjectName":     errs.ErrKindInvalidInput,
	"KeyTooLongError":       errs.ErrKindInvalidInput,
	"EntityTooLarge":        errs.ErrKindInvalidInput,
	"RequestTimeout":        errs.ErrKindTimeout,
	"SlowDown":              errs.ErrKindTimeout,
}

// mapError translates a MinIO SDK error into a *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}
	return errs.Wrap(classify(err), msg, err)
}

func classify(err error) errs.ErrKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.ErrKindTimeout
	}

	var resp miniogo.ErrorResponse
	if !errors.As(err, &resp) {
		return errs.ErrKindConnectionFailed
	}
	if kind, ok := s3Kinds[resp.Code]; ok {
		return kind
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return errs.ErrKindNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return errs.ErrKindPermissionDenied
	case http.StatusBadRequest:
		return errs.ErrKindInvalidInput
	case http.StatusServiceUnavailable:
		return errs.ErrKindConnectionFailed
	}
	return errs.ErrKindUnknown
}

// alreadyOwned reports whether a MakeBucket error means another writer
// created the bucket first.
func alreadyOwned(err error) bool {
	var resp miniogo.ErrorResponse
	return errors.As(err, &resp) && resp.Code == "BucketAlreadyOwnedByYou"
}
