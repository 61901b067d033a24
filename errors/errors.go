// Package errors provides error types and handling for streaming multipart uploads.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a streaming upload error with context about the operation that failed.
// It wraps the underlying error from the store or the pipeline with the
// destination and, for part uploads, the part number.
type Error struct {
	// Op is the operation that failed (e.g., "begin", "uploadPart", "complete")
	Op string

	// Bucket is the destination bucket (if applicable)
	Bucket string

	// Key is the destination object key (if applicable)
	Key string

	// PartNumber is the 1-based part number for part operations, zero otherwise
	PartNumber int32

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	op := "s3stream." + e.Op
	if e.PartNumber > 0 {
		op = fmt.Sprintf("%s part %d", op, e.PartNumber)
	}
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("%s %s/%s: %v", op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s bucket %s: %v", op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("%s object %s: %v", op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithPart adds part number context to an existing error.
func (e *Error) WithPart(partNumber int32) *Error {
	e.PartNumber = partNumber
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for streaming upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrStreamClosed indicates a write or flush after the stream was closed
	ErrStreamClosed = errors.New("s3stream: stream closed")

	// ErrBufferClosed indicates a write into a chunk buffer whose storage was released
	ErrBufferClosed = errors.New("s3stream: buffer closed")

	// ErrUploadFailed indicates that a begin, part or complete operation failed
	ErrUploadFailed = errors.New("s3stream: upload failed")

	// ErrProtocolViolation indicates the upload pipeline broke one of its own invariants
	ErrProtocolViolation = errors.New("s3stream: protocol violation")

	// ErrCanceled indicates the upload was canceled before it was committed
	ErrCanceled = errors.New("s3stream: upload canceled")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3stream: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3stream: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3stream: invalid object key")

	// ErrInvalidPartSize indicates that the configured part size is out of range
	ErrInvalidPartSize = errors.New("s3stream: invalid part size")

	// ErrBucketNotFound indicates that the destination bucket does not exist
	ErrBucketNotFound = errors.New("s3stream: bucket not found")

	// ErrUploadNotFound indicates that the multipart upload id is unknown to the store
	ErrUploadNotFound = errors.New("s3stream: multipart upload not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3stream: access denied")

	// ErrTooManyRequests indicates that the request rate is too high
	ErrTooManyRequests = errors.New("s3stream: too many requests")

	// ErrEntityTooSmall indicates a non-final part smaller than the store minimum
	ErrEntityTooSmall = errors.New("s3stream: part too small")
)

// IsStreamClosed checks if an error indicates use of a closed stream.
func IsStreamClosed(err error) bool {
	return errors.Is(err, ErrStreamClosed)
}

// IsUploadFailed checks if an error indicates a failed remote operation.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsUploadFailed(err error) bool {
	return errors.Is(err, ErrUploadFailed)
}

// IsCanceled checks if an error indicates the upload was canceled.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return Code(err) == CodeInvalidInput
}
