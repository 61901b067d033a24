package multipart

import (
	"context"
	stderrors "errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

func TestS3Uploader_Begin(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *s3types.UploadConfig
		setupMock func(*testutil.MockS3Client)
		wantID    string
		wantErr   error
	}{
		{
			name: "plain",
			cfg:  &s3types.UploadConfig{ContentType: "text/plain"},
			setupMock: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					assert.Equal(t, "test-bucket", aws.ToString(in.Bucket))
					assert.Equal(t, "logs/stream.bin", aws.ToString(in.Key))
					assert.Equal(t, "text/plain", aws.ToString(in.ContentType))
					assert.Empty(t, in.ServerSideEncryption)
					return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil
				}
			},
			wantID: "upload-1",
		},
		{
			name: "attributes",
			cfg: &s3types.UploadConfig{
				Metadata:     map[string]string{"owner": "ci"},
				StorageClass: s3types.StorageClassStandardIA,
				SSE:          &s3types.SSEConfig{Type: s3types.SSEKMS, KMSKeyID: "alias/logs"},
			},
			setupMock: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					assert.Nil(t, in.ContentType)
					assert.Equal(t, map[string]string{"owner": "ci"}, in.Metadata)
					assert.Equal(t, awstypes.StorageClassStandardIa, in.StorageClass)
					assert.Equal(t, awstypes.ServerSideEncryptionAwsKms, in.ServerSideEncryption)
					assert.Equal(t, "alias/logs", aws.ToString(in.SSEKMSKeyId))
					return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-2")}, nil
				}
			},
			wantID: "upload-2",
		},
		{
			name: "s3 managed encryption",
			cfg:  &s3types.UploadConfig{SSE: &s3types.SSEConfig{Type: s3types.SSES3}},
			setupMock: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					assert.Equal(t, awstypes.ServerSideEncryptionAes256, in.ServerSideEncryption)
					assert.Nil(t, in.SSEKMSKeyId)
					return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-3")}, nil
				}
			},
			wantID: "upload-3",
		},
		{
			name: "empty upload id",
			setupMock: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					return &s3.CreateMultipartUploadOutput{}, nil
				}
			},
			wantErr: errors.ErrProtocolViolation,
		},
		{
			name: "missing bucket",
			setupMock: func(m *testutil.MockS3Client) {
				m.CreateMultipartUploadFunc = func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
					return nil, &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "bucket does not exist"}
				}
			},
			wantErr: errors.ErrBucketNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockS3Client{}
			tt.setupMock(mock)

			id, err := NewS3Uploader(mock).Begin(context.Background(), testDest, tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, id)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestS3Uploader_UploadPart(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			UploadPartFunc: func(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
				assert.Equal(t, "upload-1", aws.ToString(in.UploadId))
				assert.Equal(t, int32(3), aws.ToInt32(in.PartNumber))
				assert.Equal(t, int64(5), aws.ToInt64(in.ContentLength))
				body, err := io.ReadAll(in.Body)
				require.NoError(t, err)
				assert.Equal(t, "hello", string(body))
				return &s3.UploadPartOutput{ETag: aws.String(`"abc"`), ChecksumCRC32: aws.String("crc")}, nil
			},
		}

		ack, err := NewS3Uploader(mock).UploadPart(context.Background(), testDest, "upload-1", 3, []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, s3types.PartAcknowledgment{
			PartNumber:    3,
			ETag:          `"abc"`,
			ChecksumCRC32: "crc",
			Size:          5,
		}, ack)
	})

	t.Run("failure carries the part number", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			UploadPartFunc: func(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "NoSuchUpload"}
			},
		}

		_, err := NewS3Uploader(mock).UploadPart(context.Background(), testDest, "gone", 7, []byte("x"))
		assert.ErrorIs(t, err, errors.ErrUploadNotFound)

		var opErr *errors.Error
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "uploadPart", opErr.Op)
		assert.Equal(t, int32(7), opErr.PartNumber)
		assert.Contains(t, err.Error(), "part 7")

		var apiErr smithy.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "NoSuchUpload", apiErr.ErrorCode())
	})
}

func TestS3Uploader_Complete(t *testing.T) {
	parts := []s3types.PartAcknowledgment{
		{PartNumber: 1, ETag: "e1", Size: 4, ChecksumSHA256: "sha"},
		{PartNumber: 2, ETag: "e2", Size: 1},
	}

	mock := &testutil.MockS3Client{
		CompleteMultipartUploadFunc: func(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			require.NotNil(t, in.MultipartUpload)
			completed := in.MultipartUpload.Parts
			require.Len(t, completed, 2)
			assert.Equal(t, int32(1), aws.ToInt32(completed[0].PartNumber))
			assert.Equal(t, "e1", aws.ToString(completed[0].ETag))
			assert.Equal(t, "sha", aws.ToString(completed[0].ChecksumSHA256))
			assert.Nil(t, completed[0].ChecksumCRC32)
			assert.Equal(t, int32(2), aws.ToInt32(completed[1].PartNumber))
			return &s3.CompleteMultipartUploadOutput{
				ETag:      aws.String(`"final-2"`),
				VersionId: aws.String("v1"),
				Location:  aws.String("https://test-bucket.s3.amazonaws.com/logs/stream.bin"),
			}, nil
		},
	}

	obj, err := NewS3Uploader(mock).Complete(context.Background(), testDest, "upload-1", parts)
	require.NoError(t, err)
	assert.Equal(t, `"final-2"`, obj.ETag)
	assert.Equal(t, "v1", obj.VersionID)
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, 2, obj.Parts)
	assert.Equal(t, testDest.Key, obj.Key)
}

func TestS3Uploader_Abort(t *testing.T) {
	var aborted string
	mock := &testutil.MockS3Client{
		AbortMultipartUploadFunc: func(_ context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			aborted = aws.ToString(in.UploadId)
			return &s3.AbortMultipartUploadOutput{}, nil
		},
	}
	require.NoError(t, NewS3Uploader(mock).Abort(context.Background(), testDest, "upload-9"))
	assert.Equal(t, "upload-9", aborted)

	mock.AbortMultipartUploadFunc = func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
		return nil, &smithy.GenericAPIError{Code: "AccessDenied"}
	}
	err := NewS3Uploader(mock).Abort(context.Background(), testDest, "upload-9")
	assert.ErrorIs(t, err, errors.ErrAccessDenied)
	assert.Equal(t, errors.CodeForbidden, errors.Code(err))
}

func TestClassify(t *testing.T) {
	plain := stderrors.New("dial tcp: connection refused")
	assert.Same(t, plain, classify(plain))

	unknown := &smithy.GenericAPIError{Code: "SomethingNew"}
	assert.Equal(t, error(unknown), classify(unknown))

	throttled := classify(&smithy.GenericAPIError{Code: "SlowDown"})
	assert.ErrorIs(t, throttled, errors.ErrTooManyRequests)
}

func TestS3Uploader_WithCoordinator(t *testing.T) {
	var bodies []string
	mock := &testutil.MockS3Client{
		UploadPartFunc: func(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			body, err := io.ReadAll(in.Body)
			if err != nil {
				return nil, err
			}
			return &s3.UploadPartOutput{ETag: aws.String(string(body))}, nil
		},
		CompleteMultipartUploadFunc: func(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			for _, part := range in.MultipartUpload.Parts {
				bodies = append(bodies, aws.ToString(part.ETag))
			}
			return &s3.CompleteMultipartUploadOutput{ETag: aws.String("final")}, nil
		},
	}

	c := newTestCoordinator(t, NewS3Uploader(mock), 4)
	_, err := c.Write([]byte("ABCDE"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	obj, err := await(t, c)
	require.NoError(t, err)
	assert.Equal(t, "final", obj.ETag)
	assert.Equal(t, []string{"ABCD", "E"}, bodies)
}

func TestS3Uploader_WithCoordinatorPartFailure(t *testing.T) {
	mock := &testutil.MockS3Client{
		UploadPartFunc: func(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			if aws.ToInt32(in.PartNumber) == 2 {
				return nil, &smithy.GenericAPIError{Code: "SlowDown"}
			}
			return &s3.UploadPartOutput{ETag: aws.String("ok")}, nil
		},
	}

	c := newTestCoordinator(t, NewS3Uploader(mock), 2)
	_, err := c.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = await(t, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUploadFailed)
	assert.ErrorIs(t, err, errors.ErrTooManyRequests)

	assert.Equal(t, 1, mock.CallCount("CreateMultipartUpload"))
	assert.Equal(t, 3, mock.CallCount("UploadPart"))
	assert.Zero(t, mock.CallCount("CompleteMultipartUpload"))
	assert.Equal(t, 1, mock.CallCount("AbortMultipartUpload"))
}
