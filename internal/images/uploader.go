package images

import (
	"context"
	"fmt"
	"path"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/generate"
)

// S3Uploader mirrors generated images into a bucket under a key prefix.
type S3Uploader struct {
	client Client
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader writing to s3://bucket/prefix/.
func NewS3Uploader(client Client, bucket, prefix string) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Upload copies the file at localPath to the bucket under key.
func (u *S3Uploader) Upload(ctx context.Context, localPath, key string) error {
	return u.client.UploadFile(ctx, u.bucket, path.Join(u.prefix, key), localPath)
}

// URI returns the S3 URI an uploaded key ends up at.
func (u *S3Uploader) URI(key string) string {
	return fmt.Sprintf("s3://%s/%s", u.bucket, path.Join(u.prefix, key))
}

// FromConfig returns the uploader configured for a run, or nil when no
// bucket is set. Credentials are checked up front so a run fails before it
// writes anything.
func FromConfig(ctx context.Context, cfg config.S3Config) (generate.Uploader, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	client, err := NewRealClient(ctx, cfg.Profile, cfg.Region)
	if err != nil {
		return nil, err
	}
	u, err := newVerified(ctx, client, cfg)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func newVerified(ctx context.Context, client Client, cfg config.S3Config) (*S3Uploader, error) {
	if _, err := client.VerifyCredentials(ctx); err != nil {
		return nil, fmt.Errorf("verifying AWS credentials: %w", err)
	}
	return NewS3Uploader(client, cfg.Bucket, cfg.Prefix), nil
}

var _ generate.Uploader = (*S3Uploader)(nil)
