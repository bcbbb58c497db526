package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Storage implements the Storage interface using S3-compatible storage
type S3Storage struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	publicBase string
	presignTTL time.Duration
}

// S3Config holds configuration for S3 storage
type S3Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool

	// PublicBaseURL, when set, is joined with the object key to form locators.
	// Otherwise locators are presigned GET URLs valid for PresignTTL.
	PublicBaseURL string
	PresignTTL    time.Duration
}

// NewS3Storage creates a new S3 storage backend
func NewS3Storage(config S3Config) (*S3Storage, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	cfg := aws.Config{
		Region: config.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.SecretAccessKey,
			"",
		),
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = config.UsePathStyle
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	ttl := config.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &S3Storage{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     config.Bucket,
		publicBase: strings.TrimRight(config.PublicBaseURL, "/"),
		presignTTL: ttl,
	}, nil
}

// Put uploads an object to S3. Without Overwrite the write is conditional on
// the key being absent.
func (s *S3Storage) Put(ctx context.Context, path string, reader io.Reader, size int64, opts PutOptions) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          reader,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if !opts.Overwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isAPIError(err, "PreconditionFailed", "ConditionalRequestConflict") {
			return fmt.Errorf("%w: %s", ErrObjectExists, path)
		}
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// Locator returns a public or presigned URL for the object
func (s *S3Storage) Locator(ctx context.Context, path string) (string, error) {
	if s.publicBase != "" {
		return s.publicBase + "/" + path, nil
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign S3 url: %w", err)
	}

	return presigned.URL, nil
}

func isAPIError(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}
