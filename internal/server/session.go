package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/yeebridge/internal/dispatch"
	"github.com/muurk/yeebridge/internal/logging"
	"github.com/muurk/yeebridge/internal/protocol"
)

// session is the state of one accepted connection
type session struct {
	id         string
	remoteAddr string
	conn       net.Conn
	started    time.Time
}

func newSession(conn net.Conn) *session {
	return &session{
		id:         uuid.NewString(),
		remoteAddr: conn.RemoteAddr().String(),
		conn:       conn,
		started:    time.Now(),
	}
}

// closeWrite sends FIN so the client sees the ack followed by EOF
func (sess *session) closeWrite() {
	if cw, ok := sess.conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err == nil {
			return
		}
	}
	_ = sess.conn.Close()
}

// drain discards unread client bytes before the final close. Closing a TCP
// socket with unread input sends RST, which can destroy an ack still in
// flight.
func (sess *session) drain(max int) {
	if err := sess.conn.SetReadDeadline(time.Now().Add(lingerTimeout)); err != nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(sess.conn, int64(max)))
}

// record builds a diagnostic record for this session
func (sess *session) record(outcome Outcome) Record {
	return Record{
		Timestamp:  time.Now(),
		SessionID:  sess.id,
		RemoteAddr: sess.remoteAddr,
		Outcome:    outcome,
		Duration:   time.Since(sess.started),
	}
}

// serveSession handles the single request carried by a connection:
// read, decode, acknowledge, close, dispatch, deliver. The ack is always
// written before any delivery is attempted.
func (s *Server) serveSession(sess *session) {
	req, ok := s.readRequest(sess)
	if !ok {
		return
	}

	logging.LogRequest(sess.id, sess.remoteAddr, req.Method, req.ID, req.Raw)

	if err := s.acknowledge(sess, req); err != nil {
		rec := sess.record(OutcomeTransportError)
		rec.setRequest(req)
		rec.Error = protocol.ClassifyTransportError(err).Error()
		s.report(rec)
		return
	}

	// The client has its answer; it must not wait on the transmitter
	sess.closeWrite()

	result := s.dispatcher.Dispatch(req)
	logging.LogDispatch(sess.id, req.Method, byte(result.Code), result.Mapped)

	if !result.Mapped {
		rec := sess.record(OutcomeUnrecognized)
		rec.setRequest(req)
		rec.Acked = true
		rec.Error = protocol.NewUnrecognized(req).Error()
		s.report(rec)
		return
	}

	s.deliver(sess, req, result.Code)
}

// readRequest reads and decodes one payload. Failures are reported and
// yield ok=false; no ack is possible without a decoded id.
func (s *Server) readRequest(sess *session) (*protocol.Request, bool) {
	if err := sess.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
		rec := sess.record(OutcomeTransportError)
		rec.Error = protocol.ClassifyTransportError(err).Error()
		s.report(rec)
		return nil, false
	}

	payload, err := protocol.ReadPayload(sess.conn, s.config.MaxPayloadSize)
	if err != nil {
		rec := sess.record(OutcomeTransportError)
		rec.Error = protocol.ClassifyTransportError(err).Error()
		s.report(rec)
		return nil, false
	}

	logging.LogRawBytes("Payload received", payload)

	req, err := protocol.Decode(payload)
	if err != nil {
		rec := sess.record(OutcomeMalformed)
		rec.setPayload(payload)
		rec.Error = err.Error()
		s.report(rec)
		return nil, false
	}

	return req, true
}

// acknowledge writes {"id": <id>, "result": ["ok"]} to the client
func (s *Server) acknowledge(sess *session, req *protocol.Request) error {
	if err := sess.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
		return err
	}

	ack := protocol.Ack(req.ID)
	if _, err := sess.conn.Write(ack); err != nil {
		return fmt.Errorf("failed to write acknowledgement: %w", err)
	}

	logging.LogAck(sess.id, sess.remoteAddr, ack)
	return nil
}

// deliver forwards a mapped code to the transmitter. Failures are reported
// and not retried; the client already has its ack.
func (s *Server) deliver(sess *session, req *protocol.Request, code dispatch.Code) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.DeliveryTimeout)
	defer cancel()

	rec := sess.record(OutcomeDelivered)
	rec.setRequest(req)
	rec.Acked = true
	rec.Code = string(rune(code))

	if err := s.sender.Send(ctx, byte(code)); err != nil {
		rec.Outcome = OutcomeDeliveryFailed
		rec.Error = protocol.NewDeliveryFailure(byte(code), err).Error()
	}
	rec.Timestamp = time.Now()
	rec.Duration = time.Since(sess.started)

	s.report(rec)
}

// report hands a record to every sink
func (s *Server) report(rec Record) {
	for _, sink := range s.sinks {
		sink.Record(rec)
	}
}
