package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code names a failure class that callers can branch on. Codes are stable
// strings because they travel to the browser in function results.
type Code string

const (
	CodeColumnNotFound    Code = "ColumnNotFound"
	CodeAxisKeyNotFound   Code = "AxisKeyNotFound"
	CodeInvalidExpression Code = "InvalidExpression"
	CodeInsufficientData  Code = "InsufficientData"
	CodeMalformedToolCall Code = "MalformedToolCall"
	CodeUnknownOperation  Code = "UnknownOperation"
	CodeUpstreamProvider  Code = "UpstreamProviderError"
	CodeFileFormat        Code = "FileFormatError"
	CodeInvalidRequest    Code = "InvalidRequest"
)

// Error lets a Code act as a sentinel: errors.Is(err, CodeColumnNotFound).
func (c Code) Error() string {
	return string(c)
}

// OpError is a classified failure carrying a plain-language message.
type OpError struct {
	Code    Code
	Message string
	Err     error
}

func (e *OpError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is matches a bare Code or another OpError with the same code.
func (e *OpError) Is(target error) bool {
	switch t := target.(type) {
	case Code:
		return e.Code == t
	case *OpError:
		return e.Code == t.Code
	default:
		return false
	}
}

// New creates a classified error with a formatted message.
func New(code Code, format string, args ...any) *OpError {
	return &OpError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err, keeping it reachable through errors.Unwrap.
func Wrap(code Code, err error, format string, args ...any) *OpError {
	return &OpError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Cause returns the innermost error in err's chain.
func Cause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// CodeOf returns the code of the outermost OpError in err's chain, or "".
func CodeOf(err error) Code {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return ""
}

// HTTPStatus maps an error onto the status code the API answers with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeFileFormat, CodeInvalidRequest, CodeMalformedToolCall,
		CodeColumnNotFound, CodeAxisKeyNotFound, CodeInvalidExpression, CodeInsufficientData:
		return http.StatusBadRequest
	case CodeUnknownOperation:
		return http.StatusUnprocessableEntity
	case CodeUpstreamProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
