package logging

import (
	"encoding/hex"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "YEEBRIDGE_LOG_LEVEL"

// Output formats accepted by Initialize.
const (
	FormatAuto    = ""
	FormatConsole = "console"
	FormatJSON    = "json"
)

// maxDumpBytes caps hex/ascii dumps so a hostile payload cannot flood the log.
const maxDumpBytes = 256

// Initialize creates a new logger with the specified level and format.
// If level is empty, it checks YEEBRIDGE_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
//
// With FormatAuto the console encoder is used when stdout is a terminal and
// JSON otherwise, so the gateway logs cleanly under systemd or docker.
func Initialize(level, format string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	if format == FormatAuto {
		if tty {
			format = FormatConsole
		} else {
			format = FormatJSON
		}
	}

	var encoderConfig zapcore.EncoderConfig
	switch format {
	case FormatConsole:
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if tty {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	case FormatJSON:
		encoderConfig = zap.NewProductionEncoderConfig()
	default:
		return fmt.Errorf("unknown log format %q (expected console or json)", format)
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built

	return nil
}

// ParseLevel maps a level name onto a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", level)
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogConnection logs a connection event
func LogConnection(sessionID, remoteAddr, event string) {
	Info("Connection event",
		zap.String("session_id", sessionID),
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogRequest logs a decoded request
func LogRequest(sessionID, remoteAddr, method, id string, payload []byte) {
	Info("Request received",
		zap.String("session_id", sessionID),
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("id", id),
		zap.String("payload", printable(payload)),
	)
}

// LogAck logs the acknowledgement sent back to the client
func LogAck(sessionID, remoteAddr string, ack []byte) {
	Info("Acknowledgement sent",
		zap.String("session_id", sessionID),
		zap.String("remote_addr", remoteAddr),
		zap.ByteString("ack", ack),
	)
}

// LogDispatch logs the outcome of mapping a request onto a command code
func LogDispatch(sessionID, method string, code byte, mapped bool) {
	fields := []zap.Field{
		zap.String("session_id", sessionID),
		zap.String("method", method),
		zap.Bool("mapped", mapped),
	}
	if mapped {
		fields = append(fields, zap.String("code", string(rune(code))))
	}
	Debug("Dispatch result", fields...)
}

// LogRawBytes logs raw bytes (useful for debugging framing issues)
func LogRawBytes(label string, data []byte) {
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
		zap.String("ascii", printable(data)),
	)
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpBytes {
		return hex.EncodeToString(data[:maxDumpBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

// printable renders bytes as ASCII with non-printable characters as '.'
func printable(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpBytes {
		data = data[:maxDumpBytes]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Printable is the exported form of the ASCII renderer used by capture files.
func Printable(data []byte) string {
	return printable(data)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
