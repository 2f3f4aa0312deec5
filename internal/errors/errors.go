package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so callers can compare
// against the exported sentinels with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of an
// underlying AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Is forwards to the standard library so callers only import this package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Predefined error codes
const (
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeNotFound           = "NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnreadable         = "UNREADABLE_SPREADSHEET"
	CodeHeaderNotFound     = "HEADER_NOT_FOUND"
	CodeNameColumnNotFound = "NAME_COLUMN_NOT_FOUND"
	CodeNoQuestionColumns  = "NO_QUESTION_COLUMNS"
	CodeNoCommonQuestions  = "NO_COMMON_QUESTIONS"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
)

// Terminal normalization outcomes. Match with errors.Is.
var (
	ErrHeaderNotFound     = New(CodeHeaderNotFound, "header row not found")
	ErrNameColumnNotFound = New(CodeNameColumnNotFound, "name column not found")
	ErrNoQuestionColumns  = New(CodeNoQuestionColumns, "no usable question columns")
	ErrNoCommonQuestions  = New(CodeNoCommonQuestions, "no matching question columns")
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func Unreadable(cause error) *AppError {
	return &AppError{
		Code:    CodeUnreadable,
		Message: "spreadsheet could not be read",
		Cause:   cause,
	}
}

func UnsupportedFormat(format string) *AppError {
	return New(CodeUnsupportedFormat, fmt.Sprintf("unsupported format %q", format))
}

// HeaderNotFound reports that no row contains the header marker.
func HeaderNotFound(marker string) *AppError {
	return New(CodeHeaderNotFound, fmt.Sprintf("could not locate a row containing %q", marker))
}

// NameColumnNotFound reports that the header row has no learner name column.
func NameColumnNotFound(marker string) *AppError {
	return New(CodeNameColumnNotFound, fmt.Sprintf("could not find a column containing %q", marker))
}

// NoQuestionColumns reports that no numeric question column follows the name column.
func NoQuestionColumns() *AppError {
	return New(CodeNoQuestionColumns, "no numeric question columns after the name column")
}
