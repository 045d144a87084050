package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/user/mobproto/internal/context"
	"github.com/user/mobproto/internal/model"
	"github.com/user/mobproto/internal/session"
	"github.com/user/mobproto/internal/storage"
)

// Exit codes
const (
	exitFailure    = 1 // not found, I/O, conflicts
	exitValidation = 2 // rejected value or bad arguments
	exitFormat     = 3 // malformed input file
)

// Error codes for structured error responses
const (
	ErrCodeRecordNotFound = "RECORD_NOT_FOUND"
	ErrCodeColumnNotFound = "COLUMN_NOT_FOUND"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeFormat         = "FORMAT_ERROR"
	ErrCodeIO             = "IO_ERROR"
	ErrCodeNoFile         = "NO_FILE"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeBusy           = "BUSY"
	ErrCodeNothingToDo    = "NOTHING_TO_DO"
	ErrCodeInvalidSQL     = "INVALID_SQL"
	ErrCodeConfig         = "CONFIG_ERROR"
)

// JSONError represents a structured error response for --json output
type JSONError struct {
	Error   bool                   `json:"error"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ExitWithError outputs an error message and exits.
// If --json flag is set, outputs structured JSON error to stdout.
// Otherwise outputs plain text to stderr.
func ExitWithError(code int, errCode, message string, details map[string]interface{}) {
	if GetJSONOutput() {
		errResp := JSONError{
			Error:   true,
			Code:    errCode,
			Message: message,
			Details: details,
		}
		data, _ := json.Marshal(errResp)
		fmt.Println(string(data))
	} else {
		fmt.Fprintln(os.Stderr, "Error:", message)
	}
	Exit(code)
}

// ExitValidationError outputs a validation error
func ExitValidationError(message string, details map[string]interface{}) {
	ExitWithError(exitValidation, ErrCodeValidation, message, details)
}

// exitOnError reports err with the exit code for its kind. Errors it
// does not recognize are returned for cobra to print.
func exitOnError(err error) error {
	var (
		verr *model.ValidationError
		ferr *model.FormatError
		ioe  *model.IOError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		details := map[string]interface{}{"column": verr.Column, "value": verr.Value, "reason": verr.Reason}
		if verr.VNUM != 0 {
			details["vnum"] = verr.VNUM
		}
		ExitWithError(exitValidation, ErrCodeValidation, err.Error(), details)
	case errors.As(err, &ferr):
		issues := make([]string, len(ferr.Issues))
		for i, is := range ferr.Issues {
			issues[i] = is.String()
		}
		ExitWithError(exitFormat, ErrCodeFormat, err.Error(),
			map[string]interface{}{"source": ferr.Source, "lines": ferr.Lines(), "issues": issues})
	case errors.Is(err, model.ErrRecordNotFound):
		ExitWithError(exitFailure, ErrCodeRecordNotFound, err.Error(), nil)
	case errors.Is(err, model.ErrColumnNotFound):
		ExitWithError(exitFailure, ErrCodeColumnNotFound, err.Error(), nil)
	case errors.Is(err, model.ErrDuplicateVNUM), errors.Is(err, model.ErrEmptySelection),
		errors.Is(err, model.ErrInvalidOperator):
		ExitWithError(exitValidation, ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, model.ErrNoOpAvailable):
		ExitWithError(exitFailure, ErrCodeNothingToDo, err.Error(), nil)
	case errors.Is(err, session.ErrExternalChange):
		ExitWithError(exitFailure, ErrCodeConflict, err.Error()+" (reload, or use --force to overwrite)", nil)
	case errors.Is(err, session.ErrIOBusy):
		ExitWithError(exitFailure, ErrCodeBusy, err.Error(), nil)
	case errors.Is(err, storage.ErrInvalidQuery):
		ExitWithError(exitValidation, ErrCodeInvalidSQL, err.Error(), nil)
	case errors.Is(err, context.ErrNoFile):
		ExitWithError(exitFailure, ErrCodeNoFile, err.Error(), nil)
	case errors.Is(err, context.ErrConfigInvalid), errors.Is(err, context.ErrConfigFileNotFound):
		ExitWithError(exitValidation, ErrCodeConfig, err.Error(), nil)
	case errors.As(err, &ioe):
		ExitWithError(exitFailure, ErrCodeIO, err.Error(), map[string]interface{}{"path": ioe.Path})
	default:
		return err
	}
	return nil
}
