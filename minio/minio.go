// Package minio streams uploads into MinIO and other S3-compatible stores
// through the minio-go client.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// Config holds the connection settings for a MinIO endpoint.
type Config struct {
	// Endpoint is host[:port], without a scheme
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// CoreAPI is the subset of the minio-go Core client used for multipart uploads.
type CoreAPI interface {
	NewMultipartUpload(ctx context.Context, bucket, object string, opts miniogo.PutObjectOptions) (string, error)
	PutObjectPart(
		ctx context.Context,
		bucket, object, uploadID string,
		partID int,
		data io.Reader,
		size int64,
		opts miniogo.PutObjectPartOptions,
	) (miniogo.ObjectPart, error)
	CompleteMultipartUpload(
		ctx context.Context,
		bucket, object, uploadID string,
		parts []miniogo.CompletePart,
		opts miniogo.PutObjectOptions,
	) (miniogo.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
}

var _ CoreAPI = (*miniogo.Core)(nil)

// Uploader implements s3types.PartUploader with the minio-go Core client.
type Uploader struct {
	core CoreAPI
}

var _ s3types.PartUploader = (*Uploader)(nil)

// New connects to the endpoint in cfg with static credentials.
func New(cfg Config) (*Uploader, error) {
	core, err := miniogo.NewCore(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewError("minio client initialization", err).
			WithMessage(fmt.Sprintf("endpoint %q", cfg.Endpoint))
	}
	return NewWithCore(core), nil
}

// NewWithCore creates an Uploader from an existing client.
func NewWithCore(core CoreAPI) *Uploader {
	return &Uploader{core: core}
}

// Begin creates a new multipart upload.
func (u *Uploader) Begin(ctx context.Context, dest s3types.Destination, cfg *s3types.UploadConfig) (string, error) {
	opts, err := putOptions(cfg)
	if err != nil {
		return "", errors.NewObjectError("begin", dest.Bucket, dest.Key, err)
	}

	uploadID, err := u.core.NewMultipartUpload(ctx, dest.Bucket, dest.Key, opts)
	if err != nil {
		return "", errors.NewObjectError("begin", dest.Bucket, dest.Key, classify(err))
	}
	if uploadID == "" {
		return "", errors.NewObjectError("begin", dest.Bucket, dest.Key, errors.ErrProtocolViolation).
			WithMessage("store returned an empty upload id")
	}
	return uploadID, nil
}

// UploadPart uploads a single part.
func (u *Uploader) UploadPart(
	ctx context.Context,
	dest s3types.Destination,
	uploadID string,
	partNumber int32,
	payload []byte,
) (s3types.PartAcknowledgment, error) {
	part, err := u.core.PutObjectPart(ctx, dest.Bucket, dest.Key, uploadID, int(partNumber),
		bytes.NewReader(payload), int64(len(payload)), miniogo.PutObjectPartOptions{})
	if err != nil {
		return s3types.PartAcknowledgment{}, errors.NewObjectError("uploadPart", dest.Bucket, dest.Key, classify(err)).
			WithPart(partNumber)
	}

	return s3types.PartAcknowledgment{
		PartNumber:     partNumber,
		ETag:           part.ETag,
		ChecksumCRC32:  part.ChecksumCRC32,
		ChecksumCRC32C: part.ChecksumCRC32C,
		ChecksumSHA1:   part.ChecksumSHA1,
		ChecksumSHA256: part.ChecksumSHA256,
		Size:           int64(len(payload)),
	}, nil
}

// Complete completes the multipart upload.
func (u *Uploader) Complete(
	ctx context.Context,
	dest s3types.Destination,
	uploadID string,
	parts []s3types.PartAcknowledgment,
) (*s3types.CommittedObject, error) {
	completed := make([]miniogo.CompletePart, len(parts))
	var size int64
	for i, part := range parts {
		completed[i] = miniogo.CompletePart{
			PartNumber:     int(part.PartNumber),
			ETag:           part.ETag,
			ChecksumCRC32:  part.ChecksumCRC32,
			ChecksumCRC32C: part.ChecksumCRC32C,
			ChecksumSHA1:   part.ChecksumSHA1,
			ChecksumSHA256: part.ChecksumSHA256,
		}
		size += part.Size
	}

	info, err := u.core.CompleteMultipartUpload(ctx, dest.Bucket, dest.Key, uploadID, completed, miniogo.PutObjectOptions{})
	if err != nil {
		return nil, errors.NewObjectError("complete", dest.Bucket, dest.Key, classify(err))
	}

	return &s3types.CommittedObject{
		Bucket:    dest.Bucket,
		Key:       dest.Key,
		ETag:      info.ETag,
		VersionID: info.VersionID,
		Location:  info.Location,
		Size:      size,
		Parts:     len(parts),
	}, nil
}

// Abort discards the multipart upload and its stored parts.
func (u *Uploader) Abort(ctx context.Context, dest s3types.Destination, uploadID string) error {
	if err := u.core.AbortMultipartUpload(ctx, dest.Bucket, dest.Key, uploadID); err != nil {
		return errors.NewObjectError("abort", dest.Bucket, dest.Key, classify(err))
	}
	return nil
}

func putOptions(cfg *s3types.UploadConfig) (miniogo.PutObjectOptions, error) {
	var opts miniogo.PutObjectOptions
	if cfg == nil {
		return opts, nil
	}

	opts.ContentType = cfg.ContentType
	opts.UserMetadata = cfg.Metadata
	opts.StorageClass = string(cfg.StorageClass)

	if cfg.SSE != nil {
		switch cfg.SSE.Type {
		case s3types.SSEKMS:
			sse, err := encrypt.NewSSEKMS(cfg.SSE.KMSKeyID, nil)
			if err != nil {
				return opts, fmt.Errorf("%w: %w", errors.ErrInvalidInput, err)
			}
			opts.ServerSideEncryption = sse
		default:
			opts.ServerSideEncryption = encrypt.NewSSE()
		}
	}
	return opts, nil
}

// classify joins err with the sentinel for the S3 error code MinIO reported.
func classify(err error) error {
	if resp := miniogo.ToErrorResponse(err); resp.Code != "" {
		return multipart.ClassifyCode(resp.Code, err)
	}
	return err
}
