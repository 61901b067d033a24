package testutil

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

func TestMockS3Client(t *testing.T) {
	t.Run("returns default when no function set", func(t *testing.T) {
		mock := &MockS3Client{}
		out, err := mock.CreateMultipartUpload(context.Background(), &s3.CreateMultipartUploadInput{})
		require.NoError(t, err)
		assert.Equal(t, DefaultUploadID, aws.ToString(out.UploadId))

		part, err := mock.UploadPart(context.Background(), &s3.UploadPartInput{PartNumber: aws.Int32(3)})
		require.NoError(t, err)
		assert.Equal(t, "etag-3", aws.ToString(part.ETag))
	})

	t.Run("records calls", func(t *testing.T) {
		mock := &MockS3Client{}
		ctx := context.Background()
		_, _ = mock.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{})
		_, _ = mock.UploadPart(ctx, &s3.UploadPartInput{PartNumber: aws.Int32(1)})
		_, _ = mock.UploadPart(ctx, &s3.UploadPartInput{PartNumber: aws.Int32(2)})
		_, _ = mock.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{})

		assert.Equal(t,
			[]string{"CreateMultipartUpload", "UploadPart", "UploadPart", "AbortMultipartUpload"},
			mock.Calls())
		assert.Equal(t, 2, mock.CallCount("UploadPart"))
		assert.Zero(t, mock.CallCount("CompleteMultipartUpload"))
	})

	t.Run("custom function", func(t *testing.T) {
		mock := &MockS3Client{
			UploadPartFunc: func(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
				return &s3.UploadPartOutput{ETag: in.UploadId}, nil
			},
		}
		out, err := mock.UploadPart(context.Background(), &s3.UploadPartInput{UploadId: aws.String("u")})
		require.NoError(t, err)
		assert.Equal(t, "u", aws.ToString(out.ETag))
	})
}

func TestFakeUploader_CopiesPayloads(t *testing.T) {
	f := &FakeUploader{}
	dest := s3types.Destination{Bucket: "b", Key: "k"}

	payload := []byte("abc")
	ack, err := f.UploadPart(context.Background(), dest, "id", 1, payload)
	require.NoError(t, err)
	copy(payload, "xyz")

	assert.Equal(t, "etag-1", ack.ETag)
	assert.Equal(t, []string{"abc"}, f.Payloads())
	assert.Equal(t, []int32{1}, f.ResolutionOrder())
	assert.Equal(t, []string{"id"}, f.PartUploadIDs())

	_, err = f.Complete(context.Background(), dest, "id", []s3types.PartAcknowledgment{ack})
	require.NoError(t, err)
	assert.Equal(t, "id", f.CompleteUploadID())
}

func TestGates(t *testing.T) {
	g := NewGates()
	released := make(chan struct{})
	go func() {
		g.Wait(2)
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("gate opened before release")
	case <-time.After(10 * time.Millisecond):
	}

	g.Release(2)
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("gate never opened")
	}
}

func TestMockProgressTracker(t *testing.T) {
	tracker := &MockProgressTracker{}
	tracker.Update(10, -1)
	tracker.Update(20, -1)
	tracker.Complete()

	assert.Equal(t, []ProgressUpdate{{10, -1}, {20, -1}}, tracker.Updates())
	assert.True(t, tracker.CompleteCalled())
	assert.NoError(t, tracker.LastError())
}

func TestHelpers(t *testing.T) {
	assert.Len(t, GenerateRandomData(128), 128)
	assert.Regexp(t, regexp.MustCompile(`^logs/stream-\d+-\d+$`), GenerateTestKey("logs"))

	name := GenerateTestBucketName("My_Prefix")
	assert.Regexp(t, `^my-prefix-\d+-\d+$`, name)
	assert.LessOrEqual(t, len(name), 63)
}
