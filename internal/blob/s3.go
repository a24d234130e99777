package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 client.
type S3Options struct {
	// Client is used as-is when set. Otherwise a client is built from the
	// default AWS config chain (env, shared config, instance role).
	Client *s3.Client
	// Endpoint overrides the service endpoint for S3-compatible stores and
	// switches to path-style addressing.
	Endpoint string
}

// S3Source streams one S3 object.
type S3Source struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Source creates a source for bucket/key.
func NewS3Source(ctx context.Context, region, bucket, key string, opts S3Options) (*S3Source, error) {
	client := opts.Client
	if client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if region != "" {
			loadOpts = append(loadOpts, config.WithRegion(region))
		}

		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("blob: loading aws config: %w", err)
		}

		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.Endpoint != "" {
				o.BaseEndpoint = aws.String(opts.Endpoint)
				o.UsePathStyle = true
			}
		})
	}

	return &S3Source{client: client, bucket: bucket, key: key}, nil
}

// Open starts a GetObject stream of the whole object.
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("blob: downloading %s: %w", s, err)
	}

	return out.Body, nil
}

func (s *S3Source) String() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}
