package status

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
)

const (
	// IO indicates a generic filesystem error
	IO Type = 1

	// Network indicates a connectivity problem reaching the release endpoint (connect failure or timeout)
	Network Type = 2

	// Transport indicates a non-connectivity HTTP transport error
	Transport Type = 3

	// RemoteData indicates malformed or incomplete release metadata
	RemoteData Type = 4

	// Configuration indicates an invalid or unreadable configuration file
	Configuration Type = 5

	// FileNotFound indicates that a required file is missing
	FileNotFound Type = 6

	// PermissionDenied indicates that a filesystem operation was not permitted
	PermissionDenied Type = 7

	// Download indicates a failure in the binary download sequence, e.g. a missing release asset
	Download Type = 8

	// Execution indicates that the managed tool failed to run or exited unsuccessfully
	Execution Type = 9

	// Timeout indicates that the managed tool ran past the execution ceiling and was terminated
	Timeout Type = 10
)

// Type is a type of the Error
type Type int32

// NoExitCode marks an Execution error for a process that terminated
// without a status code, e.g. killed by a signal.
const NoExitCode = -1

// Error is an internal error carrying a kind and, for Execution
// errors, the child's exit code when the platform supplied one.
type Error struct {
	ErrorType Type
	Message   string

	// ExitCode is only meaningful for Execution errors. NoExitCode
	// means the process terminated without a status code.
	ExitCode int
}

// Type returns the Type of the error
func (e *Error) Type() Type {
	return e.ErrorType
}

// Error is an error string
func (e *Error) Error() string {
	return e.Message
}

// Errorf returns Error(ErrorType, fmt.Sprintf(format, a...)).
func Errorf(errorType Type, format string, a ...interface{}) error {
	return &Error{
		ErrorType: errorType,
		Message:   fmt.Sprintf(format, a...),
		ExitCode:  NoExitCode,
	}
}

// NewExecutionError creates an Execution Error carrying the child's exit code.
// Pass NoExitCode when the process terminated without a status code.
func NewExecutionError(exitCode int, format string, a ...interface{}) error {
	return &Error{
		ErrorType: Execution,
		Message:   fmt.Sprintf(format, a...),
		ExitCode:  exitCode,
	}
}

// FromError returns Error, true if the provided error is of type of Error. nil, false otherwise
func FromError(err error) (s *Error, ok bool) {
	if err == nil {
		return nil, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is an Error of the given kind.
func Is(err error, errorType Type) bool {
	e, ok := FromError(err)
	return ok && e != nil && e.ErrorType == errorType
}

// FromOSError classifies a filesystem error into FileNotFound,
// PermissionDenied or IO.
func FromOSError(err error, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Errorf(FileNotFound, "%s: %v", msg, err)
	case errors.Is(err, os.ErrPermission):
		return Errorf(PermissionDenied, "%s: %v", msg, err)
	default:
		return Errorf(IO, "%s: %v", msg, err)
	}
}

// FromHTTPError classifies an HTTP client error. Connect failures and
// timeouts become Network errors, everything else Transport.
func FromHTTPError(err error, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Errorf(Network, "%s: %v", msg, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Errorf(Network, "%s: %v", msg, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && (urlErr.Timeout() || urlErr.Temporary()) {
		return Errorf(Network, "%s: %v", msg, err)
	}

	return Errorf(Transport, "%s: %v", msg, err)
}
