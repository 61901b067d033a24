package s3stream

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// NewWriter starts a streaming upload to bucket/key.
//
// Nothing is sent to the store until the first part is cut. ctx bounds every
// remote call made for the upload, including the commit after Close;
// canceling it fails the upload.
//
// Errors:
//   - ErrInvalidBucketName, ErrInvalidObjectKey: the destination is not valid
//   - ErrInvalidPartSize, ErrInvalidInput: an option is not valid
func (c *Client) NewWriter(
	ctx context.Context,
	bucket, key string,
	opts ...s3types.WriterOption,
) (*Writer, error) {
	dest := s3types.Destination{Bucket: bucket, Key: key}
	if err := validation.ValidateDestination(dest); err != nil {
		return nil, err
	}

	cfg := s3types.WriterConfig{
		PartSize:       c.partSize,
		AbortOnFailure: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validation.ValidateWriterConfig(&cfg); err != nil {
		return nil, err
	}

	return &Writer{
		coord: multipart.NewCoordinator(ctx, c.uploader, dest, cfg, c.logger),
		dest:  dest,
	}, nil
}

// Upload streams everything read from r into bucket/key and waits for the
// commit. If reading fails the upload is canceled.
//
// Example:
//
//	obj, err := client.Upload(ctx, "my-bucket", "dumps/db.sql.gz", pipeReader)
func (c *Client) Upload(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	opts ...s3types.WriterOption,
) (*s3types.CommittedObject, error) {
	w, err := c.NewWriter(ctx, bucket, key, opts...)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Cancel()
		// Let the abort finish before reporting.
		_, _ = w.Wait(ctx)
		return nil, errors.NewObjectError("upload", bucket, key, err)
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.Wait(ctx)
}

// UploadFile streams the file at path, read through the client's filesystem,
// into bucket/key. Unless WithContentType is given, the content type is taken
// from the file extension, falling back to detection from the content.
func (c *Client) UploadFile(
	ctx context.Context,
	bucket, key, path string,
	opts ...s3types.WriterOption,
) (*s3types.CommittedObject, error) {
	if path == "" {
		return nil, errors.NewObjectError("uploadFile", bucket, key, errors.ErrInvalidInput).
			WithMessage("path cannot be empty")
	}

	fs, path, err := c.resolvePath(path)
	if err != nil {
		return nil, errors.NewObjectError("uploadFile", bucket, key, err)
	}
	info, err := fs.Stat(path)
	if err != nil {
		return nil, errors.NewObjectError("uploadFile", bucket, key, err)
	}
	if info.IsDir() {
		return nil, errors.NewObjectError("uploadFile", bucket, key, errors.ErrInvalidInput).
			WithMessage("path points to a directory, not a file")
	}

	if contentType := contentTypeFromExtension(path); contentType != "" {
		opts = append([]s3types.WriterOption{WithContentType(contentType)}, opts...)
	}

	file, err := fs.Open(path)
	if err != nil {
		return nil, errors.NewObjectError("uploadFile", bucket, key, err)
	}
	defer file.Close()

	c.logger.DebugContext(ctx, "uploading file",
		slog.String("path", path),
		slog.Int64("size", info.Size()),
		slog.String("destination", s3types.Destination{Bucket: bucket, Key: key}.String()))

	return c.Upload(ctx, bucket, key, file, opts...)
}

func contentTypeFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}
