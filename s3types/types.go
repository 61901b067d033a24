// Package s3types provides shared type definitions for the s3stream module.
package s3types

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"
)

const (
	// DefaultPartSize is the part capacity used when none is configured (10 MiB).
	DefaultPartSize = 10 * 1024 * 1024

	// MaxPartSize is the largest part S3 accepts (5 GiB).
	MaxPartSize = 5 * 1024 * 1024 * 1024

	// MaxParts is the largest part number S3 accepts.
	MaxParts = 10000
)

// StorageClass represents the S3 storage class for objects.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacierIR provides Glacier Instant Retrieval storage
	StorageClassGlacierIR StorageClass = "GLACIER_IR"
)

// SSEType represents the server-side encryption type for objects.
type SSEType string

// Predefined server-side encryption types
const (
	// SSES3 uses S3-managed encryption keys
	SSES3 SSEType = "AES256"

	// SSEKMS uses AWS KMS-managed encryption keys
	SSEKMS SSEType = "aws:kms"
)

// SSEConfig contains server-side encryption configuration.
type SSEConfig struct {
	// Type is the encryption type (S3 or KMS)
	Type SSEType

	// KMSKeyID is the KMS key ID (optional for SSE-KMS)
	KMSKeyID string
}

// SessionState is the lifecycle state of one streaming upload.
type SessionState int32

const (
	// StateIdle means nothing has been cut and begin has not been issued.
	StateIdle SessionState = iota
	// StateActive means at least one part has been cut.
	StateActive
	// StateFinalizing means the stream was closed and the commit is pending.
	StateFinalizing
	// StateCompleted means the object was committed.
	StateCompleted
	// StateFailed means a remote operation failed and nothing was committed.
	StateFailed
	// StateCanceled means the caller canceled the upload.
	StateCanceled
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Open reports whether the stream still accepts writes.
func (s SessionState) Open() bool {
	return s == StateIdle || s == StateActive
}

// Terminal reports whether the session has reached its final state.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCanceled
}

// Destination identifies the object being written.
type Destination struct {
	Bucket string
	Key    string
}

// String returns the destination as an s3 URI.
func (d Destination) String() string {
	return "s3://" + d.Bucket + "/" + d.Key
}

// PartAcknowledgment is what the store returns for an uploaded part and what
// the complete operation needs to reference it.
type PartAcknowledgment struct {
	// PartNumber is the 1-based position of the part in the object
	PartNumber int32

	// ETag is the entity tag the store assigned to the part
	ETag string

	// Optional checksums reported by the store
	ChecksumCRC32  string
	ChecksumCRC32C string
	ChecksumSHA1   string
	ChecksumSHA256 string

	// Size is the payload length in bytes
	Size int64
}

// CommittedObject describes an object after a successful complete operation.
type CommittedObject struct {
	// Bucket and Key locate the committed object
	Bucket string
	Key    string

	// ETag is the entity tag of the assembled object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Location is the URL of the object if the store reports one
	Location string

	// Size is the total number of bytes written
	Size int64

	// Parts is the number of parts the object was assembled from
	Parts int

	// Duration is how long the session took, from the first cut to commit
	Duration time.Duration
}

// UploadConfig holds the object attributes sent with the begin operation.
type UploadConfig struct {
	ContentType  string
	Metadata     map[string]string
	StorageClass StorageClass
	SSE          *SSEConfig
}

// PartUploader performs the remote multipart operations for a stream.
//
// Methods are called from goroutines owned by the upload pipeline, never from
// the writer, so implementations may block on the network. Implementations
// must be safe for concurrent use and must not retry on their own behalf
// beyond what their transport does. The payload passed to UploadPart is only
// valid for the duration of the call.
type PartUploader interface {
	// Begin starts a multipart upload and returns its upload id.
	Begin(ctx context.Context, dest Destination, cfg *UploadConfig) (string, error)

	// UploadPart uploads one part of the upload identified by uploadID.
	// The acknowledgment may leave PartNumber and Size zero; otherwise
	// PartNumber must equal partNumber or the commit fails with
	// errors.ErrProtocolViolation.
	UploadPart(
		ctx context.Context,
		dest Destination,
		uploadID string,
		partNumber int32,
		payload []byte,
	) (PartAcknowledgment, error)

	// Complete assembles parts, given in ascending part number order, into the object.
	Complete(
		ctx context.Context,
		dest Destination,
		uploadID string,
		parts []PartAcknowledgment,
	) (*CommittedObject, error)

	// Abort discards the upload and every part stored for it.
	Abort(ctx context.Context, dest Destination, uploadID string) error
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations must be safe for concurrent use; Update is called from
// part upload goroutines.
type ProgressTracker interface {
	// Update is called after each part upload with the bytes uploaded so far.
	// totalBytes is -1 because a stream's length is unknown until it is closed.
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the object was committed
	Complete()

	// Error is called when the upload failed or was canceled
	Error(err error)
}

// Configuration types for functional options

// ClientConfig holds configuration for the s3stream client.
type ClientConfig struct {
	Region          string
	Endpoint        string
	MaxRetries      int
	Timeout         time.Duration
	PartSize        int
	ForcePathStyle  bool
	CustomAWSConfig *aws.Config
	HTTPClient      *http.Client
	Logger          *slog.Logger
	Filesystem      billy.Filesystem
}

// WriterConfig holds configuration for one streaming upload.
type WriterConfig struct {
	UploadConfig
	PartSize        int
	ProgressTracker ProgressTracker
	AbortOnFailure  bool
}

type (
	// Option is a functional option for configuring the s3stream client.
	Option func(*ClientConfig)
	// WriterOption is a functional option for configuring a single Writer.
	WriterOption func(*WriterConfig)
)
