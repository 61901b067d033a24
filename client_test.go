package s3stream

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

func TestClient_New(t *testing.T) {
	tests := []struct {
		name       string
		opts       []s3types.Option
		wantRegion string
	}{
		{
			name:       "custom aws config",
			opts:       []s3types.Option{WithAWSConfig(&aws.Config{Region: "eu-west-1"})},
			wantRegion: "eu-west-1",
		},
		{
			name:       "region option wins over aws config",
			opts:       []s3types.Option{WithAWSConfig(&aws.Config{Region: "eu-west-1"}), WithRegion("us-west-2")},
			wantRegion: "us-west-2",
		},
		{
			name:       "region defaults when unset",
			opts:       []s3types.Option{WithAWSConfig(&aws.Config{})},
			wantRegion: "us-east-1",
		},
		{
			name: "endpoint, path style and transport",
			opts: []s3types.Option{
				WithAWSConfig(&aws.Config{}),
				WithEndpoint("http://localhost:4566"),
				WithForcePathStyle(true),
				WithMaxRetries(5),
				WithTimeout(30 * time.Second),
				WithHTTPClient(&http.Client{}),
			},
			wantRegion: "us-east-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.opts...)
			require.NoError(t, err)
			require.NotNil(t, client)
			assert.NotNil(t, client.uploader)
			assert.Equal(t, tt.wantRegion, client.Region())
			assert.Equal(t, s3types.DefaultPartSize, client.partSize)
		})
	}
}

func TestClient_NewWithClient(t *testing.T) {
	client := NewWithClient(&testutil.MockS3Client{}, WithPartSize(5*1024*1024))
	assert.Equal(t, 5*1024*1024, client.partSize)
	assert.NotNil(t, client.logger)
	assert.NotNil(t, client.filesystem())
	assert.Empty(t, client.Region())
}

func TestClient_Options(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	fs := memfs.New()

	client := NewWithUploader(&testutil.FakeUploader{},
		WithPartSize(-1),
		WithLogger(logger),
		WithFilesystem(fs),
	)
	assert.Equal(t, s3types.DefaultPartSize, client.partSize, "non-positive part size is ignored")
	assert.Same(t, logger, client.logger)
	assert.Same(t, fs, client.filesystem())

	other := memfs.New()
	client.SetFilesystem(other)
	assert.Same(t, other, client.filesystem())
}

func TestWriterOptions(t *testing.T) {
	tracker := &testutil.MockProgressTracker{}
	sse := &s3types.SSEConfig{Type: s3types.SSES3}

	cfg := s3types.WriterConfig{AbortOnFailure: true}
	for _, opt := range []s3types.WriterOption{
		WithWriterPartSize(1024),
		WithContentType("text/csv"),
		WithMetadata(map[string]string{"a": "1"}),
		WithMetadata(map[string]string{"b": "2"}),
		WithStorageClass(s3types.StorageClassGlacierIR),
		WithServerSideEncryption(sse),
		WithProgress(tracker),
		WithAbortOnFailure(false),
	} {
		opt(&cfg)
	}

	assert.Equal(t, 1024, cfg.PartSize)
	assert.Equal(t, "text/csv", cfg.ContentType)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, cfg.Metadata)
	assert.Equal(t, s3types.StorageClassGlacierIR, cfg.StorageClass)
	assert.Same(t, sse, cfg.SSE)
	assert.Same(t, tracker, cfg.ProgressTracker)
	assert.False(t, cfg.AbortOnFailure)
}
