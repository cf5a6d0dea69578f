// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     apperr
// Description: Error codes shared by all components
// Author:      Mike Stoffels
// Created:     2026-01-12
// License:     MIT
// ============================================================================

package apperr

// Code classifies an error
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Configuration and environment
	CodeConfiguration Code = "CONFIGURATION"

	// Database
	CodeConnectionFailed Code = "CONNECTION_FAILED"
	CodeNotConnected     Code = "NOT_CONNECTED"
	CodeEmptyStatement   Code = "EMPTY_STATEMENT"
	CodeQueryExecution   Code = "QUERY_EXECUTION"
	CodeStreamConsumed   Code = "STREAM_CONSUMED"

	// Query orchestration
	CodeBlankInput        Code = "BLANK_INPUT"
	CodeTranslation       Code = "TRANSLATION"
	CodeRejectedStatement Code = "REJECTED_STATEMENT"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// Category returns the high-level category of the code
func (c Code) Category() string {
	switch c {
	case CodeConfiguration:
		return "configuration"
	case CodeConnectionFailed, CodeNotConnected, CodeEmptyStatement, CodeQueryExecution, CodeStreamConsumed:
		return "database"
	case CodeBlankInput, CodeTranslation, CodeRejectedStatement:
		return "query"
	default:
		return "generic"
	}
}
