package bank

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures so callers can branch on them
// without inspecting the wrapped cause.
type ErrorCode string

const (
	CodeInvalidPath        ErrorCode = "INVALID_PATH"
	CodePathEscape         ErrorCode = "PATH_ESCAPE"
	CodeUnknownFileType    ErrorCode = "UNKNOWN_FILE_TYPE"
	CodeNotFound           ErrorCode = "ENOENT"
	CodePermissionDenied   ErrorCode = "EACCES"
	CodeAlreadyExists      ErrorCode = "EEXIST"
	CodeTransientExhausted ErrorCode = "TRANSIENT_EXHAUSTED"
	CodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	CodeCacheInconsistency ErrorCode = "CACHE_INCONSISTENCY"
	CodeUnhealthy          ErrorCode = "UNHEALTHY"
	CodeInvalidArgument    ErrorCode = "EINVAL"
	CodeIO                 ErrorCode = "EIO"
)

// Error is the typed failure every engine operation returns. Native
// filesystem error types never cross the package boundary directly.
type Error struct {
	Code ErrorCode
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Code, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// opError builds a typed engine error.
func opError(code ErrorCode, op, path string, err error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// CodeOf returns the engine error code carried by err, or the empty
// string when err is not an engine error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given engine error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
