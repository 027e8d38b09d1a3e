package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfgRecruit/internal/config"
)

func TestUnconfiguredReturnsMockURL(t *testing.T) {
	blob, err := New(config.MinIOConfig{MockBaseURL: "https://example.com/mock-uploads/"})
	require.NoError(t, err)

	url, err := blob.Put(context.Background(), "1700000000000-cv.pdf", strings.NewReader("pdf"), 3, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/mock-uploads/1700000000000-cv.pdf", url)
}

func TestUnconfiguredDefaultBase(t *testing.T) {
	url, err := Unconfigured{}.Put(context.Background(), "my file.pdf", strings.NewReader(""), 0, "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/mock-uploads/my%20file.pdf", url)
}

func TestNewClientRejectsBadLookup(t *testing.T) {
	_, err := NewClient(config.MinIOConfig{Endpoint: "localhost:9000", BucketLookup: "sideways"})
	assert.EqualError(t, err, `invalid minio bucket lookup "sideways"`)
}

func TestNewClientRequiresPublicHost(t *testing.T) {
	_, err := NewClient(config.MinIOConfig{Endpoint: "localhost:9000", PublicEndpoint: "not a url"})
	assert.Error(t, err)
}

func TestPublicReadPolicyGrantsObjectReadsOnly(t *testing.T) {
	raw, err := PublicReadPolicy("resumes")
	require.NoError(t, err)

	var policy bucketPolicy
	require.NoError(t, json.Unmarshal([]byte(raw), &policy))
	assert.Equal(t, "2012-10-17", policy.Version)
	require.Len(t, policy.Statement, 1)
	stmt := policy.Statement[0]
	assert.Equal(t, "Allow", stmt.Effect)
	assert.Equal(t, []string{"*"}, stmt.Principal["AWS"])
	assert.Equal(t, []string{"s3:GetObject"}, stmt.Action)
	assert.Equal(t, []string{"arn:aws:s3:::resumes/*"}, stmt.Resource)
}

func TestPublicURLUsesPublicEndpoint(t *testing.T) {
	public, err := minio.New("files.example.com", &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Secure: true,
	})
	require.NoError(t, err)
	c := &Client{publicClient: public, bucketName: "resumes"}

	assert.Equal(t, "https://files.example.com/resumes/1700000000000-cv.pdf", c.PublicURL("1700000000000-cv.pdf"))
}
