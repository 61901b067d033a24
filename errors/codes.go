package errors

import "errors"

// ErrorCode classifies a streaming upload failure.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates the bucket or the multipart upload does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Permission errors.

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the bucket, key, part size or payload is invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Usage errors.

	// CodeClosed indicates the stream was used after it was closed.
	CodeClosed ErrorCode = "STREAM_CLOSED"

	// CodeCanceled indicates the upload was canceled by the caller.
	CodeCanceled ErrorCode = "CANCELED"

	// Infrastructure errors.

	// CodeRateLimit indicates the store asked the client to slow down.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeUploadFailed indicates a begin, part or complete operation failed.
	CodeUploadFailed ErrorCode = "UPLOAD_FAILED"

	// System errors.

	// CodeInternal indicates an invariant of the upload pipeline was broken.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// codeTable is checked in order; the first matching sentinel wins, so the
// more specific causes come before ErrUploadFailed.
var codeTable = []struct {
	sentinel error
	code     ErrorCode
}{
	{ErrProtocolViolation, CodeInternal},
	{ErrStreamClosed, CodeClosed},
	{ErrBufferClosed, CodeClosed},
	{ErrCanceled, CodeCanceled},
	{ErrBucketNotFound, CodeNotFound},
	{ErrUploadNotFound, CodeNotFound},
	{ErrAccessDenied, CodeForbidden},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrInvalidBucketName, CodeInvalidInput},
	{ErrInvalidObjectKey, CodeInvalidInput},
	{ErrInvalidPartSize, CodeInvalidInput},
	{ErrEntityTooSmall, CodeInvalidInput},
	{ErrTooManyRequests, CodeRateLimit},
	{ErrUploadFailed, CodeUploadFailed},
}

// Code returns the ErrorCode for err. A nil error has an empty code.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}
	for _, entry := range codeTable {
		if errors.Is(err, entry.sentinel) {
			return entry.code
		}
	}
	return CodeUnknown
}
