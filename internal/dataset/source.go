package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wayfarerhq/wayfarer/internal/config"
)

// Source is where the dataset file comes from. The loader only ever
// reads the whole object once, so a plain ReadCloser is enough.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

func NewSource(cfg config.DatasetConfig) (Source, error) {
	switch cfg.Type {
	case "local":
		if cfg.Path == "" {
			return nil, fmt.Errorf("dataset.path is required for local dataset")
		}
		return &localSource{path: cfg.Path}, nil
	case "s3":
		return &s3Source{cfg: cfg.S3}, nil
	default:
		return nil, fmt.Errorf("unsupported dataset source type: %s", cfg.Type)
	}
}

type localSource struct {
	path string
}

func (s *localSource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return file, nil
}

type s3Source struct {
	cfg config.S3DatasetConfig
}

func (s *s3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.cfg.SecretID, s.cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(s.cfg.Endpoint, s.cfg.UseSSL))
			o.UsePathStyle = true
		}
	})
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get dataset object s3://%s/%s: %w", s.cfg.Bucket, s.cfg.Key, err)
	}
	return out.Body, nil
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
