package s3stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the maximum number of attempts the AWS SDK makes for
// each request. Default is 3. Part uploads are never retried beyond this.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the timeout for individual S3 requests.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithHTTPClient allows providing a custom HTTP client.
// It takes precedence over WithTimeout.
func WithHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.HTTPClient = client
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithPartSize sets the default part capacity for writers created by the client.
// Default is 10 MiB. S3 rejects parts other than the last below 5 MiB.
func WithPartSize(partSize int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithLogger sets the logger used by the client and its writers.
// If not set, nothing is logged.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets the filesystem UploadFile reads from.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithWriterPartSize sets the part capacity for one writer, overriding the
// client default.
func WithWriterPartSize(partSize int) s3types.WriterOption {
	return func(c *s3types.WriterConfig) {
		c.PartSize = partSize
	}
}

// WithContentType sets the content type of the object.
// If not set, it is detected from the first part.
func WithContentType(contentType string) s3types.WriterOption {
	return func(c *s3types.WriterConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata adds user metadata to the object.
func WithMetadata(metadata map[string]string) s3types.WriterOption {
	return func(c *s3types.WriterConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithStorageClass sets the storage class of the object.
func WithStorageClass(storageClass s3types.StorageClass) s3types.WriterOption {
	return func(c *s3types.WriterConfig) {
		c.StorageClass = storageClass
	}
}

// WithServerSideEncryption sets server-side encryption for the object.
func WithServerSideEncryption(sse *s3types.SSEConfig) s3types.WriterOption {
	return func(c *s3types.WriterConfig) {
		c.SSE = sse
	}
}

// WithProgress sets a progress tracker for the upload.
func WithProgress(tracker s3types.ProgressTracker) s3types.WriterOption {
	return func(c *s3types.WriterConfig) {
		c.ProgressTracker = tracker
	}
}

// WithAbortOnFailure controls whether a failed upload is aborted so the
// store discards its parts. Default is true.
func WithAbortOnFailure(abort bool) s3types.WriterOption {
	return func(c *s3types.WriterConfig) {
		c.AbortOnFailure = abort
	}
}
