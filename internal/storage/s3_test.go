package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testS3Config() S3Config {
	return S3Config{
		Endpoint:        "http://localhost:9000",
		Bucket:          "videos",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		UsePathStyle:    true,
		PresignTTL:      15 * time.Minute,
	}
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	cfg := testS3Config()
	cfg.Bucket = ""
	_, err := NewS3Storage(cfg)
	assert.Error(t, err)
}

func TestS3Storage_LocatorPublicBase(t *testing.T) {
	cfg := testS3Config()
	cfg.PublicBaseURL = "https://cdn.example.com/videos/"
	s, err := NewS3Storage(cfg)
	require.NoError(t, err)

	u, err := s.Locator(context.Background(), "uploads/jtcabc123.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/uploads/jtcabc123.mp4", u)
}

func TestS3Storage_LocatorPresigned(t *testing.T) {
	s, err := NewS3Storage(testS3Config())
	require.NoError(t, err)

	u, err := s.Locator(context.Background(), "uploads/jtcabc123.mp4")
	require.NoError(t, err)
	assert.Contains(t, u, "http://localhost:9000/videos/uploads/jtcabc123.mp4")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=900")
}

func TestIsAPIError(t *testing.T) {
	err := fmt.Errorf("put: %w", &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"})
	assert.True(t, isAPIError(err, "PreconditionFailed"))
	assert.False(t, isAPIError(err, "NoSuchKey"))
	assert.False(t, isAPIError(errors.New("boom"), "PreconditionFailed"))
}
