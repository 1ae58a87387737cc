package errors

import (
	stderrors "errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Authentication errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// Authorization errors
	CodeAccessDenied     Code = "ACCESS_DENIED"
	CodeHintAccessDenied Code = "HINT_ACCESS_DENIED"

	// Validation errors
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeHintStepEmpty      Code = "HINT_STEP_EMPTY"
	CodeHintMessageEmpty   Code = "HINT_MESSAGE_EMPTY"
	CodeHintTargetRequired Code = "HINT_TARGET_REQUIRED"

	// Business precondition errors
	CodeNoOpenSupportRequest Code = "NO_OPEN_SUPPORT_REQUEST"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes for client responses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument,
		CodeHintStepEmpty,
		CodeHintMessageEmpty,
		CodeHintTargetRequired:
		return http.StatusBadRequest

	case CodeUnauthenticated:
		return http.StatusUnauthorized

	case CodeAccessDenied,
		CodeHintAccessDenied,
		CodeNoOpenSupportRequest:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts metadata from an error if present.
// Returns nil if the error is not a domain error or has no metadata.
func GetMetadata(err error) map[string]string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
