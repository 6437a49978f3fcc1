package bulbclient

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeBulb accepts one connection per reply and answers with the given bytes.
// It returns the address and a channel receiving each request line.
func fakeBulb(t *testing.T, replies ...string) (string, <-chan string) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	requests := make(chan string, len(replies))
	go func() {
		for _, reply := range replies {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			line, _ := bufio.NewReader(conn).ReadString('\n')
			requests <- line
			_, _ = io.WriteString(conn, reply)
			_ = conn.Close()
		}
	}()

	return l.Addr().String(), requests
}

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	c := NewClient(host, port)
	c.SetTimeout(2 * time.Second)
	c.SetRetry(0, 10*time.Millisecond)
	return c
}

func TestNewClient(t *testing.T) {
	c := NewClient("192.168.1.20", 0)

	if c.Addr != "192.168.1.20:55443" {
		t.Errorf("Addr = %s, want 192.168.1.20:55443", c.Addr)
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
	if c.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", c.MaxRetries, DefaultMaxRetries)
	}

	c.SetRetry(5, 2*time.Second)
	if c.MaxRetries != 5 || c.RetryDelay != 2*time.Second {
		t.Errorf("SetRetry() = %d/%v, want 5/2s", c.MaxRetries, c.RetryDelay)
	}
}

func TestClient_Toggle(t *testing.T) {
	addr, requests := fakeBulb(t, `{"id": 1, "result": ["ok"]}`)
	c := newTestClient(t, addr)

	reply, err := c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !reply.OK() {
		t.Errorf("reply.OK() = false, raw %s", reply.Raw)
	}
	if string(reply.ID) != "1" {
		t.Errorf("reply.ID = %s, want 1", reply.ID)
	}

	req := <-requests
	if req != `{"id": 1, "method": "toggle", "params": []}`+"\r\n" {
		t.Errorf("request = %q", req)
	}
}

func TestClient_SetPowerIncrementsID(t *testing.T) {
	addr, requests := fakeBulb(t,
		`{"id": 1, "result": ["ok"]}`,
		`{"id": 2, "result": ["ok"]}`+"\r\n",
	)
	c := newTestClient(t, addr)

	if _, err := c.SetPower(context.Background(), true); err != nil {
		t.Fatalf("SetPower(true) error = %v", err)
	}
	if _, err := c.SetPower(context.Background(), false); err != nil {
		t.Fatalf("SetPower(false) error = %v", err)
	}

	first, second := <-requests, <-requests
	if !strings.Contains(first, `"id": 1`) || !strings.Contains(first, `["on","smooth",500]`) {
		t.Errorf("first request = %q", first)
	}
	if !strings.Contains(second, `"id": 2`) || !strings.Contains(second, `"off"`) {
		t.Errorf("second request = %q", second)
	}
}

func TestClient_ErrorReply(t *testing.T) {
	addr, _ := fakeBulb(t, `{"id": 1, "error": {"code": -1, "message": "unsupported method"}}`)
	c := newTestClient(t, addr)

	reply, err := c.Call(context.Background(), "set_music", 1)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if reply.OK() {
		t.Error("reply.OK() = true for an error reply")
	}
	if reply.Error == nil || reply.Error.Message != "unsupported method" {
		t.Errorf("reply.Error = %+v", reply.Error)
	}
}

func TestClient_NoReply(t *testing.T) {
	addr, _ := fakeBulb(t, "")
	c := newTestClient(t, addr)

	_, err := c.Send(context.Background(), []byte("garbage\r\n"))
	var ce *ClientError
	if err == nil {
		t.Fatal("Send() error = nil, want no-reply error")
	}
	if !errors.As(err, &ce) || ce.Type != ErrTypeNoReply {
		t.Errorf("Send() error = %v, want %v", err, ErrTypeNoReply)
	}
}

func TestClient_ParseError(t *testing.T) {
	addr, _ := fakeBulb(t, "not json at all")
	c := newTestClient(t, addr)

	reply, err := c.Toggle(context.Background())
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeParse {
		t.Fatalf("Toggle() error = %v, want parse error", err)
	}
	if reply == nil || len(reply.Raw) == 0 {
		t.Error("parse failure should still return the raw reply")
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	c := newTestClient(t, addr)
	c.SetRetry(1, 10*time.Millisecond)

	_, err = c.Toggle(context.Background())
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeConnectionRefused {
		t.Fatalf("Toggle() error = %v, want connection refused", err)
	}
	if !strings.Contains(err.Error(), "giving up after 2 attempts") {
		t.Errorf("Toggle() error = %v, want retry summary", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	// Accept and never answer
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	c := newTestClient(t, l.Addr().String())
	c.SetTimeout(100 * time.Millisecond)

	_, err = c.Toggle(context.Background())
	if !IsTimeout(err) {
		t.Errorf("Toggle() error = %v, want timeout", err)
	}
}
