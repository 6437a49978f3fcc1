package server

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muurk/yeebridge/internal/logging"
	"github.com/muurk/yeebridge/internal/protocol"
	"go.uber.org/zap"
)

// Outcome is how a session ended
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeUnrecognized   Outcome = "unrecognized"
	OutcomeMalformed      Outcome = "malformed"
	OutcomeTransportError Outcome = "transport_error"
)

// Record describes one finished session for the diagnostic sinks
type Record struct {
	Timestamp    time.Time     `json:"timestamp"`
	SessionID    string        `json:"session_id"`
	RemoteAddr   string        `json:"remote_addr"`
	Outcome      Outcome       `json:"outcome"`
	ID           string        `json:"id,omitempty"`
	Method       string        `json:"method,omitempty"`
	Parameter    string        `json:"parameter,omitempty"`
	Code         string        `json:"code,omitempty"`
	Acked        bool          `json:"acked"`
	Duration     time.Duration `json:"duration_ns,omitempty"`
	PayloadASCII string        `json:"payload_ascii,omitempty"`
	PayloadHex   string        `json:"payload_hex,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func (r *Record) setRequest(req *protocol.Request) {
	r.ID = req.ID
	r.Method = req.Method
	r.Parameter = req.Parameter
	r.setPayload(req.Raw)
}

func (r *Record) setPayload(payload []byte) {
	r.PayloadASCII = logging.Printable(payload)
	r.PayloadHex = hex.EncodeToString(payload)
}

// Sink receives a Record for every finished session
type Sink interface {
	Record(rec Record)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(rec Record)

// Record calls f(rec)
func (f SinkFunc) Record(rec Record) {
	f(rec)
}

// LogSink writes records to the structured log
type LogSink struct{}

// Record logs rec at a level matching its outcome
func (LogSink) Record(rec Record) {
	fields := []zap.Field{
		zap.String("session_id", rec.SessionID),
		zap.String("remote_addr", rec.RemoteAddr),
		zap.String("outcome", string(rec.Outcome)),
	}
	if rec.Method != "" {
		fields = append(fields, zap.String("method", rec.Method), zap.String("id", rec.ID))
	}
	if rec.Code != "" {
		fields = append(fields, zap.String("code", rec.Code))
	}
	if rec.Error != "" {
		fields = append(fields, zap.String("error", rec.Error))
	}

	switch rec.Outcome {
	case OutcomeDelivered:
		logging.Info("Command delivered", fields...)
	case OutcomeDeliveryFailed:
		logging.Error("Command delivery failed", fields...)
	case OutcomeUnrecognized:
		fields = append(fields,
			zap.Bool("known_method", protocol.IsKnownMethod(rec.Method)),
			zap.String("payload", rec.PayloadASCII),
		)
		logging.Warn("Unrecognized command", fields...)
	case OutcomeMalformed:
		fields = append(fields, zap.String("payload", rec.PayloadASCII))
		logging.Warn("Malformed request dropped", fields...)
	case OutcomeTransportError:
		logging.Debug("Request abandoned", fields...)
	default:
		logging.Info("Session finished", fields...)
	}
}

// CaptureSink appends records as JSON Lines to a capture file, one file
// per gateway run.
type CaptureSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewCaptureSink creates capture-<timestamp>.jsonl in dir
func NewCaptureSink(dir string) (*CaptureSink, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access analysis directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("analysis path is not a directory: %s", dir)
	}

	path := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	return &CaptureSink{path: path, f: f}, nil
}

// Path returns the capture file location
func (c *CaptureSink) Path() string {
	return c.path
}

// Record appends rec to the capture file
func (c *CaptureSink) Record(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		logging.Error("Failed to marshal capture record", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.f == nil {
		return
	}
	if _, err := c.f.Write(append(data, '\n')); err != nil {
		logging.Error("Failed to write to capture file",
			zap.String("filename", c.path),
			zap.Error(err),
		)
		return
	}

	logging.Debug("Saved record to capture file",
		zap.String("filename", c.path),
		zap.String("session_id", rec.SessionID),
	)
}

// Close closes the capture file
func (c *CaptureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}
