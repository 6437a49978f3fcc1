package transmitter

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Serialized wraps a Sender so that only one code is on the bus at a time,
// with a token bucket spacing out bursts of deliveries.
type Serialized struct {
	mu      sync.Mutex
	next    Sender
	limiter *rate.Limiter
	closed  bool
}

// NewSerialized wraps next. Use rate.Inf to disable the limiter.
func NewSerialized(next Sender, limit rate.Limit, burst int) *Serialized {
	return &Serialized{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Send waits for a token, then delivers code while holding the bus lock.
func (s *Serialized) Send(ctx context.Context, code byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for bus slot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.next.Send(ctx, code)
}

// Close closes the wrapped sender. Further sends return ErrClosed.
func (s *Serialized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.next.Close()
}
