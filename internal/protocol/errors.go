package protocol

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorType represents the category of a session failure
type ErrorType int

const (
	// ErrTypeMalformedRequest indicates the payload was not a usable request
	// (not JSON, not an object, or id/method missing). No ack is sent.
	ErrTypeMalformedRequest ErrorType = iota
	// ErrTypeUnrecognizedCommand indicates a valid request with no mapped
	// transmitter code. The ack is still sent.
	ErrTypeUnrecognizedCommand
	// ErrTypeDeliveryFailure indicates the transmitter rejected a code
	ErrTypeDeliveryFailure
	// ErrTypeTransportFailure indicates the connection failed mid-request
	// (reset, timeout, empty read)
	ErrTypeTransportFailure
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeMalformedRequest:
		return "Malformed Request"
	case ErrTypeUnrecognizedCommand:
		return "Unrecognized Command"
	case ErrTypeDeliveryFailure:
		return "Delivery Failure"
	case ErrTypeTransportFailure:
		return "Transport Failure"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// GatewayError represents a failure while handling one request
type GatewayError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Payload []byte    // Raw payload (if any was read)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *GatewayError) Unwrap() error {
	return e.Err
}

func newMalformed(message string, payload []byte, err error) *GatewayError {
	return &GatewayError{
		Type:    ErrTypeMalformedRequest,
		Message: message,
		Payload: payload,
		Err:     err,
	}
}

// NewUnrecognized reports a request that has no mapped command code
func NewUnrecognized(req *Request) *GatewayError {
	return &GatewayError{
		Type:    ErrTypeUnrecognizedCommand,
		Message: fmt.Sprintf("no command mapped for method %q with parameter %q", req.Method, req.Parameter),
		Payload: req.Raw,
	}
}

// NewDeliveryFailure wraps an error returned by the transmitter
func NewDeliveryFailure(code byte, err error) *GatewayError {
	return &GatewayError{
		Type:    ErrTypeDeliveryFailure,
		Message: fmt.Sprintf("failed to deliver code %q", rune(code)),
		Err:     err,
	}
}

// ErrorTypeOf returns the category of err, or false if err is not a GatewayError
func ErrorTypeOf(err error) (ErrorType, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Type, true
	}
	return 0, false
}

// IsMalformed reports whether err is a MalformedRequest error
func IsMalformed(err error) bool {
	t, ok := ErrorTypeOf(err)
	return ok && t == ErrTypeMalformedRequest
}

// IsTimeout reports whether err is a deadline or timeout error
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ClassifyTransportError wraps a connection-level read/write error
func ClassifyTransportError(err error) *GatewayError {
	if err == nil {
		return nil
	}

	message := "connection error"
	switch {
	case errors.Is(err, io.EOF):
		message = "connection closed before a request was received"
	case IsTimeout(err):
		message = "connection timed out"
	case errors.Is(err, syscall.ECONNRESET):
		message = "connection reset by peer"
	case errors.Is(err, net.ErrClosed):
		message = "connection closed"
	}

	return &GatewayError{
		Type:    ErrTypeTransportFailure,
		Message: message,
		Err:     err,
	}
}
