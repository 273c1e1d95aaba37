// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/invowk/modfs/pkg/vfs"
)

type (
	// ObjectStore is the part of the S3 API the S3 source uses.
	ObjectStore interface {
		s3.ListObjectsV2APIClient
		GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	}

	// S3Config describes how to reach a bucket.
	S3Config struct {
		Region string
		// Endpoint selects an S3-compatible service (e.g. MinIO) and turns
		// on path-style addressing.
		Endpoint  string
		AccessKey string
		SecretKey string
	}

	// S3 serves packed packages stored as <prefix><name>/<version>.tgz.
	S3 struct {
		client ObjectStore
		bucket string
		prefix string
		opts   options
	}
)

// NewS3Client builds an S3 client from the default AWS configuration chain,
// overridden by cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3 creates an S3 source reading bucket below prefix.
func NewS3(client ObjectStore, bucket, prefix string, opts ...Option) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix, opts: applyOptions(opts)}
}

func (s *S3) packagePrefix(name string) string {
	return s.prefix + name + "/"
}

// Versions lists the versions stored for name.
func (s *S3) Versions(ctx context.Context, name string) ([]string, error) {
	prefix := s.packagePrefix(name)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var versions []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			rest := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if strings.Contains(rest, "/") || !strings.HasSuffix(rest, ArchiveExt) {
				continue
			}
			versions = append(versions, strings.TrimSuffix(rest, ArchiveExt))
		}
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, prefix)
	}
	return versions, nil
}

// Fetch implements installer.Fetcher.
func (s *S3) Fetch(ctx context.Context, name, constraint string) (*vfs.FileSystem, error) {
	versions, err := s.Versions(ctx, name)
	if err != nil {
		return nil, err
	}
	version, err := selectVersion(name, constraint, versions)
	if err != nil {
		return nil, err
	}

	key := s.packagePrefix(name) + version + ArchiveExt
	s.opts.logger.Debug("downloading", "bucket", s.bucket, "key", key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, s.opts.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	root, err := s.opts.decode(data)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
	}
	return vfs.FromDirectory(root, "s3:"+name+"@"+version), nil
}
