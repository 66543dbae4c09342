// Package errors provides categorized errors for the ingestion pipeline.
//
// Every failure surfaced to an operator carries a category (which stage of
// the pipeline it belongs to), a machine-readable code, an optional
// suggestion, and structured context. Categories map to process exit codes
// so an external scheduler can distinguish "remote source unreachable" from
// "another archiver is running" without parsing log text.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryTransport     ErrorCategory = "transport"
	CategoryFile          ErrorCategory = "file"
	CategoryDecode        ErrorCategory = "decode"
	CategorySchema        ErrorCategory = "schema"
	CategoryLoad          ErrorCategory = "load"
	CategoryConcurrency   ErrorCategory = "concurrency"
	CategoryMerge         ErrorCategory = "merge"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Transport errors
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeListingFailed    ErrorCode = "listing_failed"
	CodeFetchFailed      ErrorCode = "fetch_failed"
	CodeSizeMismatch     ErrorCode = "size_mismatch"

	// File-area errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeDirectoryError ErrorCode = "directory_error"
	CodeCopyFailed     ErrorCode = "copy_failed"

	// Decode/shape errors
	CodeUndecodable      ErrorCode = "undecodable"
	CodeImplausibleTable ErrorCode = "implausible_table"

	// Schema errors
	CodeInvalidHeader   ErrorCode = "invalid_header"
	CodeDictionaryError ErrorCode = "dictionary_error"

	// Load errors
	CodeBulkInsertFailed ErrorCode = "bulk_insert_failed"
	CodeZeroRows         ErrorCode = "zero_rows"

	// Concurrency errors
	CodeLockNotAcquired  ErrorCode = "lock_not_acquired"
	CodeLockTimeout      ErrorCode = "lock_timeout"
	CodeStatementTimeout ErrorCode = "statement_timeout"

	// Merge errors
	CodeUpsertFailed  ErrorCode = "upsert_failed"
	CodeBatchMismatch ErrorCode = "batch_mismatch"

	// Configuration errors
	CodeMissingConfig ErrorCode = "missing_config"
	CodeInvalidConfig ErrorCode = "invalid_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// PipelineError is the base error type for all application errors
type PipelineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *PipelineError) GetExitCode() int {
	switch e.Category {
	case CategoryTransport:
		return 2
	case CategoryFile, CategoryDecode, CategorySchema:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryLoad, CategoryMerge, CategoryInternal:
		return 5
	case CategoryConcurrency:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *PipelineError) WithSuggestion(suggestion string) *PipelineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PipelineError
func New(category ErrorCategory, code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with PipelineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *PipelineError {
	if err == nil {
		return nil
	}

	return &PipelineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// TransportError creates a remote-source error. Transport errors abort the
// whole ingestion run and are left to the scheduler to retry.
func TransportError(code ErrorCode, endpoint string, err error) *PipelineError {
	var message, suggestion string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("connection to remote source %s failed", endpoint)
		suggestion = "check host, port and credentials in the SFTP environment file"
	case CodeListingFailed:
		message = fmt.Sprintf("listing remote directory on %s failed", endpoint)
		suggestion = "verify the remote path exists and the account can read it"
	case CodeFetchFailed:
		message = fmt.Sprintf("fetching file from %s failed", endpoint)
		suggestion = "the transfer was interrupted; rerun the fetch stage"
	case CodeSizeMismatch:
		message = fmt.Sprintf("downloaded file size does not match remote listing on %s", endpoint)
		suggestion = "the remote file may still be being written; rerun later"
	default:
		message = fmt.Sprintf("transport error on %s", endpoint)
		suggestion = "check connectivity to the remote source"
	}

	return construct(err, CategoryTransport, code, message).
		WithSuggestion(suggestion).
		WithContext("endpoint", endpoint)
}

// FileError creates a file-area error
func FileError(code ErrorCode, path string, err error) *PipelineError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeDirectoryError:
		message = fmt.Sprintf("file area not usable: %s", path)
		suggestion = "ensure the directory exists and is writable"
	case CodeCopyFailed:
		message = fmt.Sprintf("copying file failed: %s", path)
		suggestion = "check free space and permissions on the destination area"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return construct(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("path", path)
}

// SchemaError creates a header/schema mismatch error. These route a single
// file to the failed area; the run continues with the next file.
func SchemaError(code ErrorCode, file string, recognized int, err error) *PipelineError {
	var message, suggestion string

	switch code {
	case CodeInvalidHeader:
		message = fmt.Sprintf("header of %s matches only %d known columns", file, recognized)
		suggestion = "the extract layout may have changed; compare the header against the column dictionary"
	case CodeDictionaryError:
		message = "column dictionary is internally inconsistent"
		suggestion = "this is a build-time defect in the dictionary table"
	default:
		message = fmt.Sprintf("schema error in %s", file)
		suggestion = "check the file header against the expected layout"
	}

	return construct(err, CategorySchema, code, message).
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("recognized_columns", recognized)
}

// LoadError creates a staging-load error
func LoadError(code ErrorCode, file string, err error) *PipelineError {
	var message, suggestion string

	switch code {
	case CodeBulkInsertFailed:
		message = fmt.Sprintf("bulk insert into staging failed for %s", file)
		suggestion = "the file is routed to the failed area; inspect its contents"
	case CodeZeroRows:
		message = fmt.Sprintf("no rows inserted from %s", file)
		suggestion = "the file parsed to an empty table; it is routed to the failed area"
	default:
		message = fmt.Sprintf("load error for %s", file)
		suggestion = "inspect the file and the staging relation"
	}

	return construct(err, CategoryLoad, code, message).
		WithSuggestion(suggestion).
		WithContext("file", file)
}

// ConcurrencyError creates a lock/timeout error. The archiver fails fast
// rather than queueing; the scheduler retries the whole invocation later.
func ConcurrencyError(code ErrorCode, lockName string, err error) *PipelineError {
	var message, suggestion string

	switch code {
	case CodeLockNotAcquired:
		message = fmt.Sprintf("advisory lock %q is held by another process", lockName)
		suggestion = "another archiver instance is running; retry later"
	case CodeLockTimeout:
		message = fmt.Sprintf("lock wait timeout exceeded for %q", lockName)
		suggestion = "a long-running transaction is blocking the batch; retry later"
	case CodeStatementTimeout:
		message = fmt.Sprintf("statement timeout exceeded while holding %q", lockName)
		suggestion = "reduce the batch size or raise the statement timeout"
	default:
		message = fmt.Sprintf("concurrency error on %q", lockName)
		suggestion = "retry the invocation later"
	}

	return construct(err, CategoryConcurrency, code, message).
		WithSuggestion(suggestion).
		WithContext("lock", lockName)
}

// MergeError creates a merge/upsert error. Merge transactions are all or
// nothing: any failure rolls back the whole batch.
func MergeError(code ErrorCode, detail string, err error) *PipelineError {
	var message, suggestion string

	switch code {
	case CodeUpsertFailed:
		message = fmt.Sprintf("fact-store upsert failed: %s", detail)
		suggestion = "the batch rolled back completely; rerun the merge stage"
	case CodeBatchMismatch:
		message = fmt.Sprintf("archive batch counts diverged: %s", detail)
		suggestion = "inserted and deleted row counts must match; the batch rolled back"
	default:
		message = fmt.Sprintf("merge error: %s", detail)
		suggestion = "rerun the merge stage; it is idempotent"
	}

	return construct(err, CategoryMerge, code, message).WithSuggestion(suggestion)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, err error) *PipelineError {
	var message, suggestion string

	switch code {
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "set this value in the environment file or pass it as a flag"
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for %s", setting)
		suggestion = "check the configuration documentation for valid values"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return construct(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *PipelineError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	return construct(err, CategoryInternal, CodeUnexpectedError, message).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

func construct(err error, category ErrorCategory, code ErrorCode, message string) *PipelineError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// AsPipelineError extracts a PipelineError from an error chain
func AsPipelineError(err error) (*PipelineError, bool) {
	if err == nil {
		return nil, false
	}

	for err != nil {
		if pe, ok := err.(*PipelineError); ok {
			return pe, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// IsCategory reports whether err belongs to the given category
func IsCategory(err error, category ErrorCategory) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Category == category
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Code == code
}

// FormatContext renders the context map for operator-facing output
func (e *PipelineError) FormatContext() string {
	if len(e.Context) == 0 {
		return ""
	}
	parts := make([]string, 0, len(e.Context))
	for key, value := range e.Context {
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	return strings.Join(parts, " ")
}
