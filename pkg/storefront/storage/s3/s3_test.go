package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
)

func TestS3Backend_Configuration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Prefix", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "storefront",
			Prefix:          "/documents/",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "documents/us-en/header.json", backend.key("us-en/header.json"))
		assert.Equal(t, "us-east-1", backend.config.Region)
	})
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"NoSuchKey", &types.NoSuchKey{}, true},
		{"NotFound", &types.NotFound{}, true},
		{"WrappedNoSuchKey", fmt.Errorf("get: %w", &types.NoSuchKey{}), true},
		{"GenericNotFoundCode", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"AccessDenied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"Plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

// TestS3Backend_MinIO runs against an S3-compatible endpoint when
// TEST_S3_ENDPOINT is set.
func TestS3Backend_MinIO(t *testing.T) {
	endpoint := os.Getenv("TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_S3_ENDPOINT not set")
	}

	backend, err := New(Config{
		Bucket:                 "storefront-test",
		Endpoint:               endpoint,
		UsePathStyle:           true,
		AccessKeyID:            "minioadmin",
		SecretAccessKey:        "minioadmin",
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	key := "documents/us-en/footer.json"
	require.NoError(t, backend.Put(ctx, key, strings.NewReader(`{"menu":null}`)))

	meta, err := backend.Stat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "application/json", meta.ContentType)

	reader, err := backend.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.JSONEq(t, `{"menu":null}`, string(data))

	require.NoError(t, backend.Delete(ctx, key))
	_, err = backend.Get(ctx, key)
	assert.ErrorIs(t, err, storefront.ErrObjectNotFound)
}
