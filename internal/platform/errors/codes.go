// Package errors provides structured error handling for the leaderboard
// pipeline.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Submission errors
	CodeSubmissionInvalidCount  Code = "SUBMISSION_INVALID_COUNT"
	CodeSubmissionEmptyUsername Code = "SUBMISSION_EMPTY_USERNAME"
	CodeSubmissionInvalidUserID Code = "SUBMISSION_INVALID_USER_ID"

	// Storage errors
	CodeStorageCorrupt Code = "STORAGE_CORRUPT"
	CodeStorageWrite   Code = "STORAGE_WRITE_FAILED"
	CodeNotFound       Code = "NOT_FOUND"

	// Publish errors
	CodePublishFailed Code = "PUBLISH_FAILED"
)

// HTTPStatus maps domain codes to HTTP status codes for the ops API.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeSubmissionInvalidCount,
		CodeSubmissionEmptyUsername,
		CodeSubmissionInvalidUserID:
		return http.StatusBadRequest

	// Not found - resource doesn't exist
	case CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
