package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 client. Endpoint and PathStyle target MinIO
// or other S3-compatible servers.
type S3Options struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

// S3Getter is the slice of the S3 API the fetcher needs.
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads s3://bucket/key URIs.
type S3Fetcher struct {
	opts   S3Options
	client S3Getter
}

// NewS3Fetcher creates a fetcher that builds its client from the default
// AWS credential chain on first use.
func NewS3Fetcher(opts S3Options) *S3Fetcher {
	return &S3Fetcher{opts: opts}
}

// NewS3FetcherWithClient creates a fetcher around an existing client.
func NewS3FetcherWithClient(client S3Getter) *S3Fetcher {
	return &S3Fetcher{client: client}
}

// Fetch downloads the object bytes.
func (f *S3Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := splitBucketURI(uri, "s3")
	if err != nil {
		return nil, err
	}

	client := f.client
	if client == nil {
		client, err = f.newClient(ctx)
		if err != nil {
			return nil, err
		}
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetchFromS3: get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("fetchFromS3: reading bytes: %w", err)
	}
	return data, nil
}

func (f *S3Fetcher) newClient(ctx context.Context) (*s3.Client, error) {
	region := f.opts.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("fetchFromS3: load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if f.opts.PathStyle {
			o.UsePathStyle = true
		}
		if f.opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(f.opts.Endpoint)
		}
	}), nil
}
