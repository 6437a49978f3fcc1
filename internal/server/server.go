package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/muurk/yeebridge/internal/dispatch"
	"github.com/muurk/yeebridge/internal/logging"
	"github.com/muurk/yeebridge/internal/protocol"
	"github.com/muurk/yeebridge/internal/transmitter"
	"go.uber.org/zap"
)

// DefaultPort is the bulb control port. Clients never ask for another one.
const DefaultPort = 55443

const (
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultDeliveryTimeout = 5 * time.Second

	// Time to wait for in-flight sessions on shutdown
	shutdownGrace = 10 * time.Second

	// Upper bound on draining leftover client input before closing
	lingerTimeout = 200 * time.Millisecond

	// Pause after a failed Accept so a persistent error cannot spin the loop
	acceptBackoff = 50 * time.Millisecond
)

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int           // 0 means DefaultPort
	ReadTimeout     time.Duration // Time allowed for the client to send its request
	WriteTimeout    time.Duration // Time allowed to write the acknowledgement
	DeliveryTimeout time.Duration // Time allowed for the transmitter to take a code
	MaxPayloadSize  int
	Sequential      bool   // Handle each connection inside the accept loop
	AnalysisDir     string // Directory for JSONL request captures (empty = disabled)
}

// Option customises a Server
type Option func(*Server)

// WithSink adds a diagnostic sink in addition to the logging sink
func WithSink(sink Sink) Option {
	return func(s *Server) {
		s.sinks = append(s.sinks, sink)
	}
}

// WithDispatcher replaces the default dispatcher
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(s *Server) {
		s.dispatcher = d
	}
}

// Server accepts bulb protocol connections and forwards mapped codes to
// the transmitter
type Server struct {
	config      *Config
	sender      transmitter.Sender
	dispatcher  *dispatch.Dispatcher
	sinks       []Sink
	listener    net.Listener
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a new Server instance
func New(config *Config, sender transmitter.Sender, opts ...Option) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("transmitter is required")
	}

	cfg := *config
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = protocol.DefaultMaxPayloadSize
	}

	s := &Server{
		config:      &cfg,
		sender:      sender,
		dispatcher:  dispatch.New(),
		sinks:       []Sink{LogSink{}},
		activeConns: make(map[string]net.Conn),
	}

	if cfg.AnalysisDir != "" {
		capture, err := NewCaptureSink(cfg.AnalysisDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open capture sink: %w", err)
		}
		s.sinks = append(s.sinks, capture)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start listens on the bulb port and blocks until a shutdown signal or error
func (s *Server) Start() error {
	addr := s.Addr()

	logging.Info("Starting yeebridge gateway",
		zap.String("addr", addr),
		zap.Bool("sequential", s.config.Sequential),
		zap.Duration("read_timeout", s.config.ReadTimeout),
		zap.Int("max_payload", s.config.MaxPayloadSize),
		zap.String("analysis_dir", s.config.AnalysisDir),
	)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping gateway...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections on l until it is closed. A closed listener
// returns nil; per-connection failures never end the loop.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	logging.Info("Gateway listening for connections",
		zap.String("addr", l.Addr().String()),
	)

	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}

		s.wg.Add(1)
		if s.config.Sequential {
			s.handleConnection(conn)
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection runs one request session and releases the connection
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	sess := newSession(conn)

	s.mu.Lock()
	s.activeConns[sess.id] = conn
	s.mu.Unlock()

	defer func() {
		sess.closeWrite()
		sess.drain(s.config.MaxPayloadSize)
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, sess.id)
		s.mu.Unlock()
		logging.LogConnection(sess.id, sess.remoteAddr, "connection_closed")
	}()

	logging.LogConnection(sess.id, sess.remoteAddr, "connection_accepted")

	s.serveSession(sess)
}

// Shutdown stops accepting, closes open sessions and waits for them
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down gateway...")

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for id, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("session_id", id))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All sessions closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(shutdownGrace):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	for _, sink := range s.sinks {
		if c, ok := sink.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}

	logging.Sync()

	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Dispatcher exposes the dispatcher, mainly for status reporting
func (s *Server) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}
