package minio

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// mockCore records multipart calls in memory.
type mockCore struct {
	mu        sync.Mutex
	beginOpts miniogo.PutObjectOptions
	parts     map[int]string
	completed []miniogo.CompletePart
	aborted   []string

	beginErr error
	partErr  error
}

func (m *mockCore) NewMultipartUpload(_ context.Context, _, _ string, opts miniogo.PutObjectOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beginOpts = opts
	if m.beginErr != nil {
		return "", m.beginErr
	}
	return "minio-upload", nil
}

func (m *mockCore) PutObjectPart(
	_ context.Context,
	_, _, _ string,
	partID int,
	data io.Reader,
	size int64,
	_ miniogo.PutObjectPartOptions,
) (miniogo.ObjectPart, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return miniogo.ObjectPart{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.partErr != nil {
		return miniogo.ObjectPart{}, m.partErr
	}
	if m.parts == nil {
		m.parts = make(map[int]string)
	}
	m.parts[partID] = string(body)
	return miniogo.ObjectPart{PartNumber: partID, ETag: "etag-" + string(body), Size: size}, nil
}

func (m *mockCore) CompleteMultipartUpload(
	_ context.Context,
	bucket, object, _ string,
	parts []miniogo.CompletePart,
	_ miniogo.PutObjectOptions,
) (miniogo.UploadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = parts
	return miniogo.UploadInfo{Bucket: bucket, Key: object, ETag: "final", VersionID: "v2"}, nil
}

func (m *mockCore) AbortMultipartUpload(_ context.Context, _, _, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted = append(m.aborted, uploadID)
	return nil
}

var dest = s3types.Destination{Bucket: "media", Key: "videos/raw.mp4"}

func TestUploader_Begin(t *testing.T) {
	core := &mockCore{}
	u := NewWithCore(core)

	id, err := u.Begin(context.Background(), dest, &s3types.UploadConfig{
		ContentType:  "video/mp4",
		Metadata:     map[string]string{"camera": "a"},
		StorageClass: s3types.StorageClassStandard,
		SSE:          &s3types.SSEConfig{Type: s3types.SSES3},
	})
	require.NoError(t, err)
	assert.Equal(t, "minio-upload", id)
	assert.Equal(t, "video/mp4", core.beginOpts.ContentType)
	assert.Equal(t, map[string]string{"camera": "a"}, core.beginOpts.UserMetadata)
	assert.Equal(t, "STANDARD", core.beginOpts.StorageClass)
	require.NotNil(t, core.beginOpts.ServerSideEncryption)
	assert.Equal(t, "SSE-S3", string(core.beginOpts.ServerSideEncryption.Type()))
}

func TestUploader_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"missing bucket", "NoSuchBucket", errors.ErrBucketNotFound},
		{"denied", "AccessDenied", errors.ErrAccessDenied},
		{"throttled", "SlowDown", errors.ErrTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := &mockCore{beginErr: miniogo.ErrorResponse{Code: tt.code, StatusCode: http.StatusBadRequest}}
			_, err := NewWithCore(core).Begin(context.Background(), dest, nil)
			assert.ErrorIs(t, err, tt.want)

			var resp miniogo.ErrorResponse
			assert.ErrorAs(t, err, &resp)
		})
	}

	plain := stderrors.New("connection refused")
	_, err := NewWithCore(&mockCore{partErr: plain}).UploadPart(context.Background(), dest, "id", 4, []byte("x"))
	assert.ErrorIs(t, err, plain)
	var opErr *errors.Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, int32(4), opErr.PartNumber)
}

func TestUploader_Stream(t *testing.T) {
	core := &mockCore{}
	client := s3stream.NewWithUploader(NewWithCore(core), s3stream.WithPartSize(3))

	w, err := client.NewWriter(context.Background(), dest.Bucket, dest.Key, s3stream.WithContentType("video/mp4"))
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdefg"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obj, err := w.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, "final", obj.ETag)
	assert.Equal(t, "v2", obj.VersionID)
	assert.Equal(t, int64(7), obj.Size)
	assert.Equal(t, map[int]string{1: "abc", 2: "def", 3: "g"}, core.parts)

	require.Len(t, core.completed, 3)
	for i, part := range core.completed {
		assert.Equal(t, i+1, part.PartNumber)
	}
	assert.Equal(t, "etag-def", core.completed[1].ETag)
	assert.Empty(t, core.aborted)
}

func TestUploader_StreamFailureAborts(t *testing.T) {
	core := &mockCore{partErr: miniogo.ErrorResponse{Code: "InternalError"}}
	client := s3stream.NewWithUploader(NewWithCore(core), s3stream.WithPartSize(3))

	_, err := client.Upload(context.Background(), dest.Bucket, dest.Key, io.LimitReader(zeros{}, 10))
	assert.ErrorIs(t, err, errors.ErrUploadFailed)
	assert.Equal(t, []string{"minio-upload"}, core.aborted)
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestNew(t *testing.T) {
	u, err := New(Config{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"})
	require.NoError(t, err)
	assert.NotNil(t, u)

	_, err = New(Config{Endpoint: "http://localhost:9000"})
	assert.Error(t, err, "endpoint must not carry a scheme")
}
