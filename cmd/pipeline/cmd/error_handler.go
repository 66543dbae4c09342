package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	pipelineerrors "sftp-data-ingestion/pkg/errors"
	"sftp-data-ingestion/pkg/logger"
)

// CLIErrorHandler turns stage errors into actionable messages and exit
// codes for operators and schedulers.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if pipelineErr, ok := pipelineerrors.AsPipelineError(err); ok {
		return h.handlePipelineError(pipelineErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handlePipelineError(err *pipelineerrors.PipelineError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := h.getCategoryHelp(err.Category); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory") {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if os.IsPermission(err) || strings.Contains(err.Error(), "permission denied") {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check permissions on the data directories\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(os.Stderr, "\nRun with --verbose for more detail\n")
	}
	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category pipelineerrors.ErrorCategory) string {
	switch category {
	case pipelineerrors.CategoryTransport:
		return `Transport error help:
• Check SFTP host, port and credentials
• Verify the remote drop directory exists and is readable
• Check network connectivity and firewall rules
• Interrupted downloads are safe to retry with 'pipeline fetch'`

	case pipelineerrors.CategoryDecode, pipelineerrors.CategorySchema:
		return `Extract format help:
• The file may not be a delivery extract; check it against recent ones
• A changed report layout means the column dictionary needs updating
• Rejected files are kept in the failed/ area for inspection`

	case pipelineerrors.CategoryLoad:
		return `Load error help:
• Inspect the file in the failed/ area
• Check the staging relation exists ('pipeline load --ensure-schema')
• Verify database permissions on the staging schema`

	case pipelineerrors.CategoryConcurrency:
		return `Concurrency help:
• Another pipeline process is working on the same tables
• Batch moves retry cleanly; rerun the stage later
• If no other process exists, look for a stuck transaction in the database`

	case pipelineerrors.CategoryConfiguration:
		return `Configuration help:
• Settings come from PIPELINE_* environment variables or an env file
• Use --env-file to point at a specific environment file
• See the README for the full list of settings`

	default:
		return ""
	}
}
