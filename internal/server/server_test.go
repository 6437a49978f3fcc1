package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/muurk/yeebridge/internal/dispatch"
)

// recordingSender captures delivered codes
type recordingSender struct {
	codes chan byte
	err   error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{codes: make(chan byte, 16)}
}

func (r *recordingSender) Send(ctx context.Context, code byte) error {
	if r.err != nil {
		return r.err
	}
	r.codes <- code
	return nil
}

func (r *recordingSender) Close() error { return nil }

type testGateway struct {
	addr    string
	srv     *Server
	sender  *recordingSender
	records chan Record
	done    chan error
}

func startGateway(t *testing.T, cfg *Config, sender *recordingSender) *testGateway {
	t.Helper()

	if sender == nil {
		sender = newRecordingSender()
	}
	records := make(chan Record, 16)

	srv, err := New(cfg, sender, WithSink(SinkFunc(func(rec Record) { records <- rec })))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	gw := &testGateway{
		addr:    l.Addr().String(),
		srv:     srv,
		sender:  sender,
		records: records,
		done:    make(chan error, 1),
	}
	go func() { gw.done <- srv.Serve(l) }()

	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		select {
		case err := <-gw.done:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Serve() did not return after Shutdown")
		}
	})

	return gw
}

// exchange sends payload on a fresh connection and returns everything the
// gateway wrote before closing
func (gw *testGateway) exchange(t *testing.T, payload string) string {
	t.Helper()

	conn, err := net.DialTimeout("tcp", gw.addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply, err := io.ReadAll(conn)
	if err != nil && !errors.Is(err, syscall.ECONNRESET) {
		t.Fatalf("read reply: %v", err)
	}
	return string(reply)
}

func (gw *testGateway) nextRecord(t *testing.T) Record {
	t.Helper()
	select {
	case rec := <-gw.records:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session record")
		return Record{}
	}
}

func (gw *testGateway) nextCode(t *testing.T) byte {
	t.Helper()
	select {
	case code := <-gw.sender.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivered code")
		return 0
	}
}

func (gw *testGateway) expectNoCode(t *testing.T) {
	t.Helper()
	select {
	case code := <-gw.sender.codes:
		t.Fatalf("unexpected code %q delivered", code)
	default:
	}
}

func TestScenario_SetPowerOn(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	ack := gw.exchange(t, `{"id": 1, "method": "set_power", "params": ["on", "smooth", 300]}`)
	if ack != `{"id": 1, "result": ["ok"]}` {
		t.Errorf("ack = %q", ack)
	}

	if code := gw.nextCode(t); code != byte(dispatch.CodePowerOn) {
		t.Errorf("delivered %q, want %q", code, dispatch.CodePowerOn)
	}

	rec := gw.nextRecord(t)
	if rec.Outcome != OutcomeDelivered || rec.Code != "a" || !rec.Acked {
		t.Errorf("record = %+v, want delivered code a", rec)
	}
}

func TestScenario_ColorTemperatureUnrecognized(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	payload := `{"id": 2, "method": "set_ct_abx", "params": [1700, "smooth", 300]}`
	ack := gw.exchange(t, payload)
	if ack != `{"id": 2, "result": ["ok"]}` {
		t.Errorf("ack = %q", ack)
	}

	rec := gw.nextRecord(t)
	if rec.Outcome != OutcomeUnrecognized {
		t.Fatalf("outcome = %s, want unrecognized", rec.Outcome)
	}
	if rec.PayloadASCII != payload {
		t.Errorf("reported payload = %q, want %q", rec.PayloadASCII, payload)
	}
	if !rec.Acked {
		t.Error("unrecognized requests are still acknowledged")
	}
	gw.expectNoCode(t)
}

func TestScenario_ToggleSequence(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	if ack := gw.exchange(t, `{"id": 3, "method": "toggle", "params": []}`); ack != `{"id": 3, "result": ["ok"]}` {
		t.Errorf("first ack = %q", ack)
	}
	if code := gw.nextCode(t); code != byte(dispatch.CodeToggleA) {
		t.Errorf("first toggle delivered %q, want c", code)
	}

	if ack := gw.exchange(t, `{"id": 4, "method": "toggle", "params": []}`); ack != `{"id": 4, "result": ["ok"]}` {
		t.Errorf("second ack = %q", ack)
	}
	if code := gw.nextCode(t); code != byte(dispatch.CodeToggleB) {
		t.Errorf("second toggle delivered %q, want d", code)
	}
}

func TestScenario_MissingMethodDropped(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	if ack := gw.exchange(t, `{"id": 5, "params": []}`); ack != "" {
		t.Errorf("malformed request got ack %q, want none", ack)
	}

	rec := gw.nextRecord(t)
	if rec.Outcome != OutcomeMalformed {
		t.Errorf("outcome = %s, want malformed", rec.Outcome)
	}
	if rec.Acked {
		t.Error("malformed request must not be acknowledged")
	}
	if !strings.Contains(rec.Error, "Malformed Request") {
		t.Errorf("error = %q, want MalformedRequest", rec.Error)
	}
	gw.expectNoCode(t)

	// The gateway keeps serving
	if ack := gw.exchange(t, `{"id": 6, "method": "set_power", "params": ["off"]}`); ack != `{"id": 6, "result": ["ok"]}` {
		t.Errorf("follow-up ack = %q", ack)
	}
	if code := gw.nextCode(t); code != byte(dispatch.CodePowerOff) {
		t.Errorf("follow-up delivered %q, want b", code)
	}
}

func TestGarbageDropped(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	if ack := gw.exchange(t, "GET / HTTP/1.1\r\n\r\n"); ack != "" {
		t.Errorf("garbage got reply %q", ack)
	}
	if rec := gw.nextRecord(t); rec.Outcome != OutcomeMalformed {
		t.Errorf("outcome = %s, want malformed", rec.Outcome)
	}
}

func TestUnknownPowerParameterAcked(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	ack := gw.exchange(t, `{"id": 9, "method": "set_power", "params": ["dim"]}`)
	if ack != `{"id": 9, "result": ["ok"]}` {
		t.Errorf("ack = %q", ack)
	}
	if rec := gw.nextRecord(t); rec.Outcome != OutcomeUnrecognized {
		t.Errorf("outcome = %s, want unrecognized", rec.Outcome)
	}
	gw.expectNoCode(t)
}

func TestAckPreservesIDLiteral(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	ack := gw.exchange(t, "{\"id\": 10.50, \"method\": \"set_bright\", \"params\": [50]}\r\n")
	if ack != `{"id": 10.50, "result": ["ok"]}` {
		t.Errorf("ack = %q", ack)
	}
}

func TestDeliveryFailureStillAcked(t *testing.T) {
	sender := newRecordingSender()
	sender.err = errors.New("remote I/O error")
	gw := startGateway(t, &Config{}, sender)

	ack := gw.exchange(t, `{"id": 11, "method": "set_power", "params": ["on"]}`)
	if ack != `{"id": 11, "result": ["ok"]}` {
		t.Errorf("ack = %q", ack)
	}

	rec := gw.nextRecord(t)
	if rec.Outcome != OutcomeDeliveryFailed {
		t.Fatalf("outcome = %s, want delivery_failed", rec.Outcome)
	}
	if !strings.Contains(rec.Error, "remote I/O error") {
		t.Errorf("error = %q, want transmitter error", rec.Error)
	}
}

func TestReadTimeoutDropsRequest(t *testing.T) {
	gw := startGateway(t, &Config{ReadTimeout: 100 * time.Millisecond}, nil)

	conn, err := net.Dial("tcp", gw.addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Half a request, then silence
	_, _ = conn.Write([]byte(`{"id": 12, "method": `))

	rec := gw.nextRecord(t)
	if rec.Outcome != OutcomeTransportError {
		t.Errorf("outcome = %s, want transport_error", rec.Outcome)
	}
	if !strings.Contains(rec.Error, "timed out") {
		t.Errorf("error = %q, want timeout", rec.Error)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if reply, _ := io.ReadAll(conn); len(reply) != 0 {
		t.Errorf("timed out session got reply %q", reply)
	}

	if ack := gw.exchange(t, `{"id": 13, "method": "toggle", "params": []}`); ack != `{"id": 13, "result": ["ok"]}` {
		t.Errorf("ack after timeout = %q", ack)
	}
}

func TestEmptyConnection(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	conn, err := net.Dial("tcp", gw.addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.Close()

	if rec := gw.nextRecord(t); rec.Outcome != OutcomeTransportError {
		t.Errorf("outcome = %s, want transport_error", rec.Outcome)
	}
}

func TestSequentialMode(t *testing.T) {
	gw := startGateway(t, &Config{Sequential: true}, nil)

	for i, want := range []dispatch.Code{dispatch.CodeToggleA, dispatch.CodeToggleB, dispatch.CodeToggleA} {
		payload := `{"id": ` + string(rune('1'+i)) + `, "method": "toggle", "params": []}`
		if ack := gw.exchange(t, payload); !strings.HasPrefix(ack, `{"id": `) {
			t.Errorf("ack = %q", ack)
		}
		if code := gw.nextCode(t); code != byte(want) {
			t.Errorf("toggle #%d delivered %q, want %q", i+1, code, want)
		}
	}
}

func TestConcurrentTogglesAlternate(t *testing.T) {
	gw := startGateway(t, &Config{}, nil)

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			conn, err := net.Dial("tcp", gw.addr)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			_, _ = conn.Write([]byte(`{"id": 1, "method": "toggle", "params": []}`))
			_, err = io.ReadAll(conn)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("client error: %v", err)
		}
	}

	counts := map[byte]int{}
	for i := 0; i < n; i++ {
		counts[gw.nextCode(t)]++
	}
	if counts['c'] != n/2 || counts['d'] != n/2 {
		t.Errorf("toggle codes = %v, want %d of each", counts, n/2)
	}
}

func TestCaptureFile(t *testing.T) {
	dir := t.TempDir()
	gw := startGateway(t, &Config{AnalysisDir: dir}, nil)

	gw.exchange(t, `{"id": 1, "method": "set_power", "params": ["on"]}`)
	gw.nextRecord(t)
	gw.exchange(t, `{"id": 2, "method": "set_ct_abx", "params": [1700, "smooth", 300]}`)
	gw.nextRecord(t)

	if err := gw.srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "capture-*.jsonl"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("capture files = %v (err %v), want 1", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	defer f.Close()

	var outcomes []Outcome
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("capture line %q: %v", scanner.Text(), err)
		}
		outcomes = append(outcomes, rec.Outcome)
	}

	want := []Outcome{OutcomeDelivered, OutcomeUnrecognized}
	if len(outcomes) != len(want) {
		t.Fatalf("captured outcomes = %v, want %v", outcomes, want)
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("outcome[%d] = %s, want %s", i, outcomes[i], want[i])
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, newRecordingSender()); err == nil {
		t.Error("New(nil config) should fail")
	}
	if _, err := New(&Config{}, nil); err == nil {
		t.Error("New(nil sender) should fail")
	}
	if _, err := New(&Config{AnalysisDir: filepath.Join(t.TempDir(), "missing")}, newRecordingSender()); err == nil {
		t.Error("New() with a missing analysis dir should fail")
	}

	srv, err := New(&Config{Host: "127.0.0.1"}, newRecordingSender())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Addr() != "127.0.0.1:55443" {
		t.Errorf("Addr() = %q, want the bulb port", srv.Addr())
	}
	if !srv.Dispatcher().ToggleState() {
		t.Error("fresh dispatcher should start with the toggle flag set")
	}
	if n := srv.GetActiveConnections(); n != 0 {
		t.Errorf("GetActiveConnections() = %d, want 0", n)
	}
}
