package bulbclient

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the bulb did not answer in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the bulb port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeNoReply indicates the bulb closed the connection without replying
	ErrTypeNoReply
	// ErrTypeParse indicates a reply that is not the expected JSON object
	ErrTypeParse
	// ErrTypeRequest indicates the request itself could not be built
	ErrTypeRequest
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeNoReply:
		return "No Reply"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeRequest:
		return "Request Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ClientError represents an error that occurred talking to a bulb
type ClientError struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Err       error     // Underlying error (if any)
	Addr      string    // Bulb address (for context)
	Retryable bool      // Whether reconnecting may help
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ClientError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a dial or I/O error
func ClassifyNetworkError(err error, addr string) *ClientError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Err: err, Addr: addr, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ClientError{
			Type:    ErrTypeDNS,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:     err,
			Addr:    addr,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &ClientError{Type: ErrTypeConnectionRefused, Message: "bulb refused connection", Err: err, Addr: addr, Retryable: true}
	}
	if errors.Is(err, syscall.EHOSTUNREACH) {
		return &ClientError{Type: ErrTypeNetwork, Message: "host unreachable", Err: err, Addr: addr, Retryable: true}
	}
	if errors.Is(err, syscall.ENETUNREACH) {
		return &ClientError{Type: ErrTypeNetwork, Message: "network unreachable", Err: err, Addr: addr, Retryable: true}
	}

	return &ClientError{Type: ErrTypeNetwork, Message: "network error occurred", Err: err, Addr: addr, Retryable: true}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *ClientError {
	return &ClientError{Type: ErrTypeParse, Message: message, Err: err}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsTimeout reports whether err is a ClientError of type ErrTypeTimeout
func IsTimeout(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeTimeout
}

// TroubleshootingHints returns user-facing advice for err
func TroubleshootingHints(err error) []string {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return nil
	}

	switch ce.Type {
	case ErrTypeTimeout:
		return []string{
			"Check that the bulb or gateway is powered on",
			"Verify you are on the same network segment",
			"Try a longer --timeout",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"Nothing is listening on port 55443 at " + ce.Addr,
			"Start the gateway with 'yeebridge serve'",
			"Real bulbs need LAN Control enabled in the Yeelight app",
		}
	case ErrTypeDNS:
		return []string{
			"Use the IP address instead of the hostname",
			"Run 'yeebridge discover' to find bulbs",
		}
	case ErrTypeNoReply:
		return []string{
			"The peer closed the connection without an acknowledgement",
			"Malformed requests are dropped without a reply",
		}
	case ErrTypeParse:
		return []string{
			"The reply was not a JSON object",
			"Run with --log-level debug to see the raw bytes",
		}
	default:
		return []string{"Check your network connection"}
	}
}
