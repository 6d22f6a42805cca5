package s3bucket

import "errors"

var (
	// ErrInvalidArgument is matched by every [*ValidationError].
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPresignUnsupported is returned by [Bucket.Presign] when the
	// configured signer cannot produce presigned URLs.
	ErrPresignUnsupported = errors.New("s3bucket: signer does not support presigning")
)

// ValidationError reports configuration or request input that was rejected
// before any network attempt. It is never worth retrying.
type ValidationError struct {
	// Field names the offending option, e.g. "baseUrl" or "bucket".
	Field string

	// Message is the human readable reason.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "s3bucket: " + e.Message + ": " + e.Err.Error()
	}
	return "s3bucket: " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidArgument.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidArgument(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
