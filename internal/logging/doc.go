// Package logging provides structured logging for the yeebridge gateway.
//
// This package wraps a package-level zap logger with convenience functions
// for the patterns used throughout the gateway: connection lifecycle,
// decoded requests, acknowledgements and dispatch outcomes.
//
// # Log Levels
//
//   - Debug: framing details, hex dumps, dispatch results
//   - Info: connections, requests, acknowledgements, delivered codes
//   - Warn: dropped requests, unrecognized commands, delivery failures
//   - Error: listener failures, startup errors
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug", logging.FormatAuto); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given the YEEBRIDGE_LOG_LEVEL environment variable is
// consulted; with neither set the logger is a no-op so one-shot CLI commands
// stay quiet.
//
// # Output Format
//
// FormatAuto picks a coloured console encoder when stdout is a terminal and
// the JSON encoder otherwise:
//
//	2026-10-19T10:30:45.123+0200  INFO  Request received
//	  session_id=5b0c...  remote_addr=192.168.1.20:50412  method=toggle  id=3
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
