package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// DefaultMaxPayloadSize bounds a single request. The largest documented
// request (set_scene with a colour flow) fits comfortably.
const DefaultMaxPayloadSize = 1024

// ReadPayload reads one request payload from a stream.
//
// Exactly one JSON value is consumed, so clients that keep the socket open
// after writing do not stall the read. The read is bounded to max bytes.
//
// When the bytes are not valid JSON (syntax error or truncation at the size
// bound) they are returned with a nil error so Decode can report them as a
// malformed request. io.EOF is returned when the peer sent nothing at all;
// any other read error (timeout, reset) is returned as-is.
func ReadPayload(r io.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxPayloadSize
	}

	var seen bytes.Buffer
	dec := json.NewDecoder(io.TeeReader(io.LimitReader(r, int64(max)), &seen))

	var value json.RawMessage
	err := dec.Decode(&value)
	if err == nil {
		return value, nil
	}

	if seen.Len() == 0 || len(bytes.TrimSpace(seen.Bytes())) == 0 {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return seen.Bytes(), nil
	}

	// Transport error after a partial read: the request is abandoned
	return nil, err
}
