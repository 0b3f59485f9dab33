package repository

import (
	"context"
	"errors"
	"fmt"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectGetter is the subset of the S3 client the source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates the CSV export in a bucket.
type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Source reads the signal log as a CSV object.
type S3Source struct {
	client ObjectGetter
	bucket string
	key    string
	l      *applogger.Logger
}

// NewS3Source builds an S3 client from the default AWS chain, with static
// keys and a custom endpoint (MinIO, LocalStack) when configured.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewS3SourceWithClient(client, cfg.Bucket, cfg.Key), nil
}

func NewS3SourceWithClient(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// SetLogger injects a structured logger.
func (s *S3Source) SetLogger(l *applogger.Logger) { s.l = l }

func (s *S3Source) Name() string { return "s3" }

func (s *S3Source) Load(ctx context.Context) ([]models.RawRow, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, s.classify(err)
	}
	defer out.Body.Close()

	rows, err := DecodeCSV(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key, err)
	}
	if s.l != nil {
		s.l.Debug("s3 signal log loaded",
			applogger.String("bucket", s.bucket),
			applogger.String("key", s.key),
			applogger.Int("rows", len(rows)),
		)
	}
	return rows, nil
}

func (s *S3Source) classify(err error) error {
	loc := fmt.Sprintf("s3://%s/%s", s.bucket, s.key)

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", domrepo.ErrSourceNotFound, loc)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NotFound":
			return fmt.Errorf("%w: %s", domrepo.ErrSourceNotFound, loc)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
			return fmt.Errorf("%w: %s: %s", domrepo.ErrAuthentication, loc, apiErr.ErrorCode())
		}
	}
	return fmt.Errorf("get %s: %w", loc, err)
}
