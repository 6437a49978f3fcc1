// Package server implements the gateway's TCP listener on the bulb control
// port 55443.
//
// Every accepted connection carries exactly one request and runs one
// session:
//
//  1. Read one JSON value (bounded in size and time)
//  2. Decode it; malformed payloads are reported and dropped without a reply
//  3. Write {"id": <id>, "result": ["ok"]} and half-close the connection
//  4. Dispatch the request to a transmitter code
//  5. Deliver the code; failures are reported, never retried
//
// The acknowledgement is always written before delivery is attempted, so a
// slow or broken transmitter never delays the client. A failure in one
// session never stops the accept loop.
//
// # Usage Example
//
//	sender, err := transmitter.Open(transmitter.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv, err := server.New(&server.Config{}, sender)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until shutdown signal or error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Diagnostics
//
// Each finished session produces a Record handed to every Sink. LogSink
// writes it to the structured log; CaptureSink appends it as JSON Lines
// to a file in Config.AnalysisDir for offline analysis.
//
// # Concurrency
//
// By default each connection runs in its own goroutine and the dispatcher
// serialises toggle state. Config.Sequential handles connections one at a
// time inside the accept loop instead.
//
// # Graceful Shutdown
//
// The server handles SIGINT and SIGTERM signals for graceful shutdown:
//  1. Stop accepting new connections
//  2. Close open sessions
//  3. Wait for in-flight deliveries to complete
//  4. Close diagnostic sinks
package server
