// Package validation checks destinations and writer settings before any
// remote call is made.
//
// Everything validated here would otherwise surface only through the
// completion future, long after the caller started writing, so the checks
// run when the writer is created.
package validation

import (
	"fmt"
	"net/netip"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// ValidateDestination validates both the bucket name and the object key.
func ValidateDestination(dest s3types.Destination) error {
	if err := ValidateBucketName(dest.Bucket); err != nil {
		return err
	}
	return ValidateObjectKey(dest.Key)
}

// bucketRules are checked in order against a bucket name; the first failing
// rule determines the message.
var bucketRules = []struct {
	fails   func(string) bool
	message string
}{
	{func(b string) bool { return len(b) < 3 || len(b) > 63 }, "bucket name must be between 3 and 63 characters long"},
	{func(b string) bool { return strings.IndexFunc(b, isInvalidBucketChar) >= 0 }, "bucket name can only contain lowercase letters, numbers, dots, and hyphens"},
	{func(b string) bool { return strings.Trim(b, ".-") != b }, "bucket name cannot start or end with a hyphen or dot"},
	{isIPAddress, "bucket name cannot be formatted as an IP address"},
	{func(b string) bool { return strings.Contains(b, "..") || strings.Contains(b, "--") }, "bucket name cannot contain two adjacent periods or hyphens"},
	{func(b string) bool { return b == "localhost" }, "bucket name cannot be a reserved word"},
}

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
// Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithMessage("bucket name cannot be empty")
	}

	for _, rule := range bucketRules {
		if rule.fails(bucket) {
			return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
				WithBucket(bucket).
				WithMessage(rule.message)
		}
	}

	return nil
}

// ValidateObjectKey validates that an object key is valid according to AWS S3 rules.
// This includes preventing path traversal and control characters.
func ValidateObjectKey(key string) error {
	var message string
	switch {
	case key == "":
		message = "object key cannot be empty"
	case len(key) > 1024:
		message = "object key cannot exceed 1024 bytes"
	case hasPathTraversal(key):
		message = "object key cannot contain path traversal sequences"
	case strings.IndexFunc(key, unicode.IsControl) >= 0:
		message = "object key cannot contain control characters"
	default:
		return nil
	}

	return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
		WithKey(key).
		WithMessage(message)
}

// ValidatePartSize checks a part capacity against the store's limits.
func ValidatePartSize(size int) error {
	if size <= 0 || int64(size) > s3types.MaxPartSize {
		return errors.NewError("validatePartSize", errors.ErrInvalidPartSize).
			WithMessage(fmt.Sprintf("part size %d must be between 1 and %d bytes", size, int64(s3types.MaxPartSize)))
	}
	return nil
}

// ValidateWriterConfig validates everything a Writer sends with the begin operation.
func ValidateWriterConfig(cfg *s3types.WriterConfig) error {
	if err := ValidatePartSize(cfg.PartSize); err != nil {
		return err
	}
	if err := ValidateContentType(cfg.ContentType); err != nil {
		return err
	}
	if err := ValidateMetadata(cfg.Metadata); err != nil {
		return err
	}
	if cfg.SSE != nil && cfg.SSE.Type != s3types.SSES3 && cfg.SSE.Type != s3types.SSEKMS {
		return errors.NewError("validateSSE", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unsupported server-side encryption type %q", cfg.SSE.Type))
	}
	return nil
}

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)

// ValidateContentType validates that a content type is a well-formed MIME type.
// An empty content type is allowed and means "detect from the first part".
func ValidateContentType(contentType string) error {
	if contentType == "" || mimePattern.MatchString(contentType) {
		return nil
	}
	return errors.NewError("validateContentType", errors.ErrInvalidInput).
		WithMessage("content type must be a valid MIME type")
}

// ValidateMetadata validates metadata keys and values according to S3 rules.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

func isInvalidBucketChar(char rune) bool {
	return !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-')
}

// isIPAddress reports whether a bucket name looks like a dotted IPv4 address
func isIPAddress(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// hasPathTraversal reports whether key is absolute or has a ".." segment.
// Dots inside a segment, as in "backup..2024.tar", are allowed.
func hasPathTraversal(key string) bool {
	if strings.HasPrefix(key, "/") {
		return true
	}
	// Windows-style absolute paths
	if len(key) >= 3 && key[1] == ':' && (key[2] == '\\' || key[2] == '/') {
		return true
	}
	segments := strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' })
	return slices.Contains(segments, "..")
}

var reservedMetadataPrefixes = []string{"aws:", "x-amz-", "x-amz:"}

func validateMetadataKey(key string) error {
	var message string
	switch {
	case key == "":
		message = "metadata key cannot be empty"
	case len(key) > 128:
		message = "metadata key cannot exceed 128 characters"
	case strings.IndexFunc(key, func(r rune) bool { return r <= 32 || r > 126 }) >= 0:
		message = "metadata key can only contain printable ASCII characters"
	default:
		for _, prefix := range reservedMetadataPrefixes {
			if strings.HasPrefix(strings.ToLower(key), prefix) {
				message = "metadata key cannot start with reserved prefix: " + prefix
				break
			}
		}
	}
	if message == "" {
		return nil
	}
	return errors.NewError("validateMetadata", errors.ErrInvalidInput).WithMessage(message)
}

func validateMetadataValue(value string) error {
	// S3 metadata values can be up to 2KB
	if len(value) > 2048 {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}
	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\t' {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}
	return nil
}
