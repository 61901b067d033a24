package multipart

import (
	"bytes"
	"context"
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// S3Uploader performs multipart operations against the S3 API.
type S3Uploader struct {
	s3Client s3api.S3API
}

// NewS3Uploader creates a PartUploader backed by an S3 client.
func NewS3Uploader(s3Client s3api.S3API) *S3Uploader {
	return &S3Uploader{
		s3Client: s3Client,
	}
}

var _ s3types.PartUploader = (*S3Uploader)(nil)

// Begin creates a new multipart upload
func (u *S3Uploader) Begin(
	ctx context.Context,
	dest s3types.Destination,
	cfg *s3types.UploadConfig,
) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(dest.Bucket),
		Key:    aws.String(dest.Key),
	}

	if cfg != nil {
		if cfg.ContentType != "" {
			input.ContentType = aws.String(cfg.ContentType)
		}
		if cfg.StorageClass != "" {
			input.StorageClass = awstypes.StorageClass(cfg.StorageClass)
		}
		if len(cfg.Metadata) > 0 {
			input.Metadata = cfg.Metadata
		}
		if cfg.SSE != nil {
			switch cfg.SSE.Type {
			case s3types.SSEKMS:
				input.ServerSideEncryption = awstypes.ServerSideEncryptionAwsKms
				if cfg.SSE.KMSKeyID != "" {
					input.SSEKMSKeyId = aws.String(cfg.SSE.KMSKeyID)
				}
			default:
				input.ServerSideEncryption = awstypes.ServerSideEncryptionAes256
			}
		}
	}

	output, err := u.s3Client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("begin", dest.Bucket, dest.Key, classify(err))
	}

	uploadID := aws.ToString(output.UploadId)
	if uploadID == "" {
		return "", errors.NewObjectError("begin", dest.Bucket, dest.Key, errors.ErrProtocolViolation).
			WithMessage("store returned an empty upload id")
	}
	return uploadID, nil
}

// UploadPart uploads a single part
func (u *S3Uploader) UploadPart(
	ctx context.Context,
	dest s3types.Destination,
	uploadID string,
	partNumber int32,
	payload []byte,
) (s3types.PartAcknowledgment, error) {
	input := &s3.UploadPartInput{
		Bucket:        aws.String(dest.Bucket),
		Key:           aws.String(dest.Key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		ContentLength: aws.Int64(int64(len(payload))),
		Body:          bytes.NewReader(payload),
	}

	output, err := u.s3Client.UploadPart(ctx, input)
	if err != nil {
		return s3types.PartAcknowledgment{}, errors.NewObjectError("uploadPart", dest.Bucket, dest.Key, classify(err)).
			WithPart(partNumber)
	}

	return s3types.PartAcknowledgment{
		PartNumber:     partNumber,
		ETag:           aws.ToString(output.ETag),
		ChecksumCRC32:  aws.ToString(output.ChecksumCRC32),
		ChecksumCRC32C: aws.ToString(output.ChecksumCRC32C),
		ChecksumSHA1:   aws.ToString(output.ChecksumSHA1),
		ChecksumSHA256: aws.ToString(output.ChecksumSHA256),
		Size:           int64(len(payload)),
	}, nil
}

// Complete completes the multipart upload
func (u *S3Uploader) Complete(
	ctx context.Context,
	dest s3types.Destination,
	uploadID string,
	parts []s3types.PartAcknowledgment,
) (*s3types.CommittedObject, error) {
	completed := make([]awstypes.CompletedPart, len(parts))
	var size int64
	for i, part := range parts {
		completed[i] = awstypes.CompletedPart{
			PartNumber:     aws.Int32(part.PartNumber),
			ETag:           aws.String(part.ETag),
			ChecksumCRC32:  optional(part.ChecksumCRC32),
			ChecksumCRC32C: optional(part.ChecksumCRC32C),
			ChecksumSHA1:   optional(part.ChecksumSHA1),
			ChecksumSHA256: optional(part.ChecksumSHA256),
		}
		size += part.Size
	}

	input := &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(dest.Bucket),
		Key:      aws.String(dest.Key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	}

	output, err := u.s3Client.CompleteMultipartUpload(ctx, input)
	if err != nil {
		return nil, errors.NewObjectError("complete", dest.Bucket, dest.Key, classify(err))
	}

	return &s3types.CommittedObject{
		Bucket:    dest.Bucket,
		Key:       dest.Key,
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Location:  aws.ToString(output.Location),
		Size:      size,
		Parts:     len(parts),
	}, nil
}

// Abort discards the multipart upload and its stored parts
func (u *S3Uploader) Abort(ctx context.Context, dest s3types.Destination, uploadID string) error {
	input := &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(dest.Bucket),
		Key:      aws.String(dest.Key),
		UploadId: aws.String(uploadID),
	}
	if _, err := u.s3Client.AbortMultipartUpload(ctx, input); err != nil {
		return errors.NewObjectError("abort", dest.Bucket, dest.Key, classify(err))
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// apiErrorSentinels maps S3 API error codes to sentinel errors.
var apiErrorSentinels = map[string]error{
	"NoSuchBucket":     errors.ErrBucketNotFound,
	"NoSuchUpload":     errors.ErrUploadNotFound,
	"AccessDenied":     errors.ErrAccessDenied,
	"SlowDown":         errors.ErrTooManyRequests,
	"Throttling":       errors.ErrTooManyRequests,
	"EntityTooSmall":   errors.ErrEntityTooSmall,
	"InvalidArgument":  errors.ErrInvalidInput,
	"InvalidPart":      errors.ErrProtocolViolation,
	"InvalidPartOrder": errors.ErrProtocolViolation,
}

// classify joins err with the sentinel for its S3 API error code, when known,
// so callers can use errors.Is on either.
func classify(err error) error {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return ClassifyCode(apiErr.ErrorCode(), err)
	}
	return err
}

// ClassifyCode joins err with the sentinel for an S3 error code. Stores other
// than AWS report the same codes, so their uploaders share the table.
func ClassifyCode(code string, err error) error {
	if sentinel, ok := apiErrorSentinels[code]; ok {
		return stderrors.Join(sentinel, err)
	}
	return err
}
