package transmitter

import (
	"context"
	"fmt"

	"github.com/muurk/yeebridge/internal/logging"
	"go.uber.org/zap"
)

// Log is a dry-run driver: codes are logged instead of written to a bus
type Log struct{}

// NewLog creates a dry-run sender
func NewLog() *Log {
	return &Log{}
}

// Send logs the code
func (l *Log) Send(ctx context.Context, code byte) error {
	logging.Info("Transmitter code (dry run)",
		zap.String("code", string(rune(code))),
		zap.String("hex", fmt.Sprintf("0x%02x", code)),
	)
	return nil
}

// Close is a no-op
func (l *Log) Close() error {
	return nil
}

