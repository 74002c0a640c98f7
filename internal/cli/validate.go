package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/qrscan/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Path   string            `json:"path"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one config problem with its source position.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a config file",
		Long: `Check a CUE config file against the qrscan schema without scanning.

The file defaults to --config, then ./qrscan.cue.

Exit codes:
  0 - Config is valid
  1 - Config violates the schema or is not valid CUE
  2 - Command error (file not found, unreadable)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = config.DefaultPath
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	slog.Debug("validating config", "path", path)

	_, err := config.Load(path)
	if err == nil {
		if opts.Format == "json" {
			return writeResponse(w, CLIResponse{Status: "ok", Data: ValidationResult{Valid: true, Path: path}})
		}
		fmt.Fprintf(w, "\u2713 %s is valid\n", path)
		return nil
	}

	var le *config.LoadError
	if !errors.As(err, &le) {
		return outputValidateError(w, opts.Format, "E200", err.Error())
	}
	switch le.Code {
	case config.ErrCodeNotFound, config.ErrCodeReadFailed:
		return outputValidateError(w, opts.Format, le.Code, le.Message)
	}

	verr := ValidationError{Code: le.Code, Message: le.Message}
	if le.Pos.IsValid() {
		verr.Line = le.Pos.Line()
		verr.Column = le.Pos.Column()
	}
	return outputValidationErrors(w, opts.Format, path, []ValidationError{verr})
}

// outputValidateError reports a file that could not be read at all.
func outputValidateError(w io.Writer, format, code, message string) error {
	_ = writeFailure(w, format, code, message)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(w io.Writer, format, path string, errs []ValidationError) error {
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Path: path, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeResponse(w, response); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(w, "\u2717 Validation failed")
	fmt.Fprintln(w)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(w, "%s:%d:%d\n", path, err.Line, err.Column)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", err.Code, err.Message)
	}
	return failed
}
