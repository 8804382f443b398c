package dp

import (
	"context"
	"io"
)

// FunctionRef identifies the remote function being updated. Immutable
// configuration for the run.
type FunctionRef struct {
	Name   string
	Region string
}

// FunctionUpdater provides an interface for the remote function update API.
// The remote service applies the update atomically from the caller's
// perspective; the workflow does not retry on failure.
type FunctionUpdater interface {
	// UpdateCode replaces the function's deployed code with the given
	// archive bytes (direct path).
	UpdateCode(ctx context.Context, ref FunctionRef, zipData []byte) error

	// UpdateCodeFromBucket replaces the function's deployed code from an
	// object previously uploaded to a storage bucket (staged path).
	UpdateCodeFromBucket(ctx context.Context, ref FunctionRef, bucket, key string) error
}

// BucketStore provides an interface for transient object storage used by the
// staged publish path. Buckets created here hold exactly one archive copy
// and live only as long as the operator wants them to.
type BucketStore interface {
	// CreateBucket creates a bucket with the given name.
	CreateBucket(ctx context.Context, name string) error

	// PutObject uploads size bytes from r to bucket/key.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64) error

	// DeleteObject removes an object from a bucket.
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteBucket removes an empty bucket.
	DeleteBucket(ctx context.Context, name string) error
}

// PublishOptions controls a single publish.
type PublishOptions struct {
	// DirectUploadLimit is the size threshold in bytes; <= 0 means
	// DefaultDirectUploadLimit.
	DirectUploadLimit int64

	// BucketPrefix names transient buckets: "<prefix>-<unique id>".
	BucketPrefix string

	// KeepBucket leaves the transient bucket and object in place after a
	// successful staged publish.
	KeepBucket bool
}

// PublishResult reports what a publish did.
type PublishResult struct {
	Artifact  *Artifact
	Strategy  Strategy
	Bucket    string // staged path only
	Key       string // staged path only
	CleanedUp bool   // staged path only: object and bucket were deleted
}
