package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"dp-go/internal/dp"
)

// S3BucketStore implements the transient bucket store on S3. Buckets created
// here exist only to stage one oversized archive for a function update; the
// service deletes them afterwards unless told to keep them.
type S3BucketStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	region   string
}

// NewS3BucketStore creates a store from a resolved AWS configuration.
// Uploads go through the multipart upload manager, so archives larger than
// a single PutObject call allows still stream without buffering in memory.
func NewS3BucketStore(cfg aws.Config) *S3BucketStore {
	client := s3.NewFromConfig(cfg)
	return &S3BucketStore{
		client:   client,
		uploader: manager.NewUploader(client),
		region:   cfg.Region,
	}
}

// CreateBucket creates the named bucket in the store's region.
func (s *S3BucketStore) CreateBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(name),
	}
	// us-east-1 rejects an explicit location constraint.
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// PutObject uploads the archive to bucket/key. size is informational; the
// upload manager chunks the stream itself.
func (s *S3BucketStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

// DeleteObject removes the staged archive object.
func (s *S3BucketStore) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// DeleteBucket removes the transient bucket. The bucket must be empty.
func (s *S3BucketStore) DeleteBucket(ctx context.Context, name string) error {
	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("delete bucket: %w", err)
	}
	return nil
}

// Compile-time check that S3BucketStore implements dp.BucketStore
var _ dp.BucketStore = (*S3BucketStore)(nil)
