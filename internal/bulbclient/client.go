package bulbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/muurk/yeebridge/internal/logging"
	"github.com/muurk/yeebridge/internal/protocol"
	"go.uber.org/zap"
)

const (
	// DefaultPort is the bulb control port
	DefaultPort = 55443

	// DefaultTimeout bounds one request/reply exchange
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of reconnect attempts
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between reconnect attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second

	maxReplySize = 4096
)

// ReplyError is the error object a bulb returns for a rejected request
type ReplyError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Reply is a decoded bulb response
type Reply struct {
	ID     json.RawMessage `json:"id"`
	Result []any           `json:"result,omitempty"`
	Error  *ReplyError     `json:"error,omitempty"`
	Raw    []byte          `json:"-"`
}

// OK reports whether the reply is a plain ["ok"] acknowledgement
func (r *Reply) OK() bool {
	return r.Error == nil && len(r.Result) == 1 && r.Result[0] == protocol.ResultOK
}

// Client sends single requests to a bulb, or to a gateway emulating one.
// Every call uses a fresh connection.
type Client struct {
	// Addr is host:port of the bulb
	Addr string

	// Timeout bounds dial, write and read for one call
	Timeout time.Duration

	// MaxRetries is the maximum number of reconnect attempts
	MaxRetries int

	// RetryDelay is the initial delay between reconnect attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	nextID atomic.Int64
	dialer net.Dialer
}

// NewClient creates a client for host. A port of 0 means DefaultPort.
func NewClient(host string, port int) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return &Client{
		Addr:                  net.JoinHostPort(host, strconv.Itoa(port)),
		Timeout:               DefaultTimeout,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the per-call timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.Timeout = timeout
}

// SetRetry configures reconnect behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Call sends method with params using the next request id
func (c *Client) Call(ctx context.Context, method string, params ...any) (*Reply, error) {
	id := int(c.nextID.Add(1))
	payload, err := protocol.NewRequest(id, method, params...)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeRequest, Message: "failed to encode request", Err: err, Addr: c.Addr}
	}
	return c.Send(ctx, payload)
}

// SetPower is Call("set_power", "on"|"off", "smooth", 500)
func (c *Client) SetPower(ctx context.Context, on bool) (*Reply, error) {
	state := "off"
	if on {
		state = "on"
	}
	return c.Call(ctx, protocol.MethodSetPower, state, "smooth", 500)
}

// Toggle is Call("toggle")
func (c *Client) Toggle(ctx context.Context) (*Reply, error) {
	return c.Call(ctx, protocol.MethodToggle)
}

// Send writes payload verbatim and reads one JSON reply. Only connection
// establishment is retried: once the request is written it is never resent,
// since toggle is not idempotent.
func (c *Client) Send(ctx context.Context, payload []byte) (*Reply, error) {
	conn, err := c.dialWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(c.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, ClassifyNetworkError(err, c.Addr)
	}

	logging.LogRawBytes("Sending request", payload)

	if _, err := conn.Write(payload); err != nil {
		return nil, ClassifyNetworkError(err, c.Addr)
	}

	raw, err := protocol.ReadPayload(conn, maxReplySize)
	if errors.Is(err, io.EOF) {
		return nil, &ClientError{Type: ErrTypeNoReply, Message: "connection closed without a reply", Addr: c.Addr}
	}
	if err != nil {
		return nil, ClassifyNetworkError(err, c.Addr)
	}

	logging.LogRawBytes("Received reply", raw)

	reply := &Reply{Raw: raw}
	if err := json.Unmarshal(bytes.TrimSpace(raw), reply); err != nil {
		return reply, NewParseError("reply is not a JSON object", err)
	}

	return reply, nil
}

// dialWithRetry connects to Addr, retrying retryable failures
func (c *Client) dialWithRetry(ctx context.Context) (net.Conn, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug("Retrying connection",
				zap.String("addr", c.Addr),
				zap.Int("attempt", attempt),
				zap.Duration("delay", currentDelay),
			)
			select {
			case <-ctx.Done():
				return nil, ClassifyNetworkError(ctx.Err(), c.Addr)
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		dialCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		conn, err := c.dialer.DialContext(dialCtx, "tcp", c.Addr)
		cancel()
		if err == nil {
			return conn, nil
		}

		lastErr = ClassifyNetworkError(err, c.Addr)
		if !IsRetryable(lastErr) || ctx.Err() != nil {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.MaxRetries+1, lastErr)
}
