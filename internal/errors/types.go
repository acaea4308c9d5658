package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
)

// TransientError is a provider failure worth retrying.
type TransientError struct {
	Err        error
	RetryAfter int // seconds, from a Retry-After header
	StatusCode int
	Message    string // shown to the user instead of Err
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a provider failure that will not go away on retry.
type PermanentError struct {
	Err        error
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

func NewTransientError(err error, message string) *TransientError {
	return &TransientError{Err: err, Message: message}
}

func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{Err: err, Message: message}
}

type retryClass int

const (
	classUnknown retryClass = iota
	classTransient
	classPermanent
)

// classify decides retryability from explicit wrappers first, then from
// network and status information, then from message text.
func classify(err error) retryClass {
	var transient *TransientError
	var permanent *PermanentError
	var opErr *OpError
	switch {
	case errors.As(err, &transient):
		return classTransient
	case errors.As(err, &permanent):
		return classPermanent
	case errors.As(err, &opErr) && opErr.Err == nil:
		// table operation failures are deterministic
		return classPermanent
	case isNetworkError(err):
		return classTransient
	}

	if status := statusCodeOf(err); status > 0 {
		switch status {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return classTransient
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
			http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusConflict,
			http.StatusGone, http.StatusUnprocessableEntity:
			return classPermanent
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE,
			syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return classTransient
		}
	}
	return classUnknown
}

func IsTransient(err error) bool {
	return err != nil && classify(err) == classTransient
}

// IsPermanent also treats messages such as "not found" or "invalid" as final.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	switch classify(err) {
	case classPermanent:
		return true
	case classTransient:
		return false
	}
	return containsAny(strings.ToLower(err.Error()),
		"not found", "permission denied", "invalid", "unauthorized", "forbidden", "bad request")
}

// FormatForUser turns a provider failure into a sentence for the chat panel.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}

	var transient *TransientError
	var permanent *PermanentError
	var opErr *OpError
	switch {
	case errors.As(err, &transient) && transient.Message != "":
		return transient.Message
	case errors.As(err, &permanent) && permanent.Message != "":
		return permanent.Message
	case errors.As(err, &opErr) && opErr.Message != "":
		return opErr.Message
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "connection refused"):
		return "The AI service is not reachable. Please check the provider URL and try again."
	case containsAny(lower, "rate limit", "429"):
		return "The AI service is rate limiting requests. Please wait a moment and try again."
	case containsAny(lower, "timeout", "deadline exceeded"):
		return "The AI service took too long to answer. Try a simpler request."
	case containsAny(lower, "unauthorized", "401"):
		return "Authentication with the AI service failed. Please check the API key."
	case containsAny(lower, "500", "502", "503", "internal server error"):
		return "The AI service is temporarily unavailable. Please try again shortly."
	}
	return msg
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}
	return containsAny(strings.ToLower(err.Error()),
		"connection refused", "timeout", "deadline exceeded", "connection reset", "broken pipe")
}

var knownStatusCodes = []int{400, 401, 403, 404, 429, 500, 502, 503, 504}

// statusCodeOf reads the status from a wrapper, else from text like "HTTP 502".
func statusCodeOf(err error) int {
	var transient *TransientError
	if errors.As(err, &transient) && transient.StatusCode > 0 {
		return transient.StatusCode
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) && permanent.StatusCode > 0 {
		return permanent.StatusCode
	}
	lower := strings.ToLower(err.Error())
	for _, code := range knownStatusCodes {
		if strings.Contains(lower, strconv.Itoa(code)) {
			return code
		}
	}
	return 0
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
