// Package archive inspects the S3 compatible archive (MinIO in a default
// deployment) the pipeline writes ingested files to.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nbisweden/lega-e2e/internal/checksum"
	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

const DefaultRegion = "us-east-1"

type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Checker answers questions about the archive bucket.
type Checker struct {
	client *s3.Client
	bucket string
}

func NewChecker(ctx context.Context, opts Options) (*Checker, error) {
	if opts.Endpoint == "" {
		return nil, srvErrors.NewInvalidArgumentError("endpoint", "archive endpoint not set")
	}
	if opts.Bucket == "" {
		return nil, srvErrors.NewInvalidArgumentError("bucket", "archive bucket not set")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, srvErrors.NewInvalidArgumentError("credentials", "archive credentials not set")
	}
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	return &Checker{client: client, bucket: opts.Bucket}, nil
}

// CountObjects returns the number of objects in the bucket.
func (c *Checker) CountObjects(ctx context.Context) (int, error) {
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	})

	count := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("s3 list failed: %w", err)
		}
		count += len(page.Contents)
	}
	return count, nil
}

// Exists reports whether key is in the bucket.
func (c *Checker) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head failed: %w", err)
}

// Checksum downloads the object at key and returns its hex digest.
func (c *Checker) Checksum(ctx context.Context, key string, algorithm models.ChecksumAlgorithm) (string, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", srvErrors.NewResourceNotFoundError("archived object", key)
		}
		return "", fmt.Errorf("s3 get failed: %w", err)
	}
	defer out.Body.Close()

	sum, err := checksum.Reader(out.Body, algorithm)
	if err != nil {
		return "", fmt.Errorf("failed to read archived object %s: %w", key, err)
	}
	return sum, nil
}
