package filestore

import "time"

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket (e.g. "diagrams/abc.mmd").
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	// ContentType is the MIME type (e.g. "text/plain").
	ContentType string

	// ETag is the object's entity tag / hash, as returned by the backend.
	ETag string

	// LastModified is when the object was last written.
	LastModified time.Time
}

// PutOptions controls how an object is written.
type PutOptions struct {
	ContentType string

	// Metadata is stored as user metadata on the object.
	Metadata map[string]string
}

// Publication is the outcome of Publisher.Publish.
type Publication struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
	URL    string
}
