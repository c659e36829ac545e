package worker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rankpilot/internal/config"
)

// ReportArchiver stores raw audit reports outside the relational store.
type ReportArchiver interface {
	Upload(ctx context.Context, key string, body []byte) (string, error)
}

type s3Archiver struct {
	client *s3.Client
	bucket string
}

// NewS3Archiver builds an archiver against the configured bucket. Returns
// nil with no error when no bucket is configured.
func NewS3Archiver(ctx context.Context, cfg config.Config) (ReportArchiver, error) {
	if cfg.ReportS3Bucket == "" {
		return nil, nil
	}
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &s3Archiver{client: client, bucket: cfg.ReportS3Bucket}, nil
}

func newS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.ReportS3Region),
	}
	if cfg.ReportS3Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               cfg.ReportS3Endpoint,
					HostnameImmutable: cfg.ReportS3PathStyle,
					SigningRegion:     cfg.ReportS3Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ReportS3PathStyle
	}), nil
}

func (a *s3Archiver) Upload(ctx context.Context, key string, body []byte) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
