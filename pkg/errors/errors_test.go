package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *PipelineError
		expected string
	}{
		{
			name:     "Message only",
			err:      &PipelineError{Message: "something broke"},
			expected: "something broke",
		},
		{
			name:     "Message with suggestion",
			err:      &PipelineError{Message: "something broke", Suggestion: "fix it"},
			expected: "something broke (suggestion: fix it)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryTransport, 2},
		{CategoryFile, 3},
		{CategoryDecode, 3},
		{CategorySchema, 3},
		{CategoryConfiguration, 4},
		{CategoryLoad, 5},
		{CategoryMerge, 5},
		{CategoryInternal, 5},
		{CategoryConcurrency, 6},
		{ErrorCategory("unknown"), 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := &PipelineError{Category: tt.category}
			if got := err.GetExitCode(); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrap_NilError(t *testing.T) {
	if got := Wrap(nil, CategoryLoad, CodeBulkInsertFailed, "msg"); got != nil {
		t.Errorf("Wrap(nil) = %v, want nil", got)
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := TransportError(CodeConnectionFailed, "sftp.example.com:22", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if err.Category != CategoryTransport {
		t.Errorf("Category = %s, want %s", err.Category, CategoryTransport)
	}
	if err.Context["endpoint"] != "sftp.example.com:22" {
		t.Errorf("missing endpoint context: %v", err.Context)
	}
}

func TestAsPipelineError(t *testing.T) {
	inner := ConcurrencyError(CodeLockNotAcquired, "archive_deliveries", nil)
	wrapped := fmt.Errorf("archive stage: %w", inner)

	pe, ok := AsPipelineError(wrapped)
	if !ok {
		t.Fatal("AsPipelineError() should find the PipelineError in the chain")
	}
	if pe.Code != CodeLockNotAcquired {
		t.Errorf("Code = %s, want %s", pe.Code, CodeLockNotAcquired)
	}

	if _, ok := AsPipelineError(fmt.Errorf("plain")); ok {
		t.Error("AsPipelineError() should not match a plain error")
	}
	if _, ok := AsPipelineError(nil); ok {
		t.Error("AsPipelineError(nil) should report false")
	}
}

func TestIsCategoryAndCode(t *testing.T) {
	err := SchemaError(CodeInvalidHeader, "report.csv", 2, nil)

	if !IsCategory(err, CategorySchema) {
		t.Error("IsCategory() should match CategorySchema")
	}
	if IsCategory(err, CategoryTransport) {
		t.Error("IsCategory() should not match CategoryTransport")
	}
	if !IsCode(err, CodeInvalidHeader) {
		t.Error("IsCode() should match CodeInvalidHeader")
	}
}

func TestSchemaError_Context(t *testing.T) {
	err := SchemaError(CodeInvalidHeader, "report.csv", 2, nil)

	if err.Context["recognized_columns"] != 2 {
		t.Errorf("recognized_columns = %v, want 2", err.Context["recognized_columns"])
	}
	if !strings.Contains(err.Message, "report.csv") {
		t.Errorf("message should name the file: %q", err.Message)
	}
}

func TestFormatContext(t *testing.T) {
	err := New(CategoryLoad, CodeZeroRows, "no rows")
	if got := err.FormatContext(); got != "" {
		t.Errorf("FormatContext() on empty context = %q, want empty", got)
	}

	err.WithContext("file", "a.csv")
	if got := err.FormatContext(); got != "file=a.csv" {
		t.Errorf("FormatContext() = %q, want %q", got, "file=a.csv")
	}
}
