package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Request is a single decoded command from a protocol client.
//
// Only ID and Method are guaranteed; Parameter and NumericParameter are
// best-effort and empty when the client did not send them.
type Request struct {
	// ID is the raw JSON literal of the "id" field, echoed verbatim in the ack
	ID string

	// Method is the RPC method name (e.g. "set_power", "toggle")
	Method string

	// Parameter is params[0] as text ("on", "off", "1700", ...)
	Parameter string

	// NumericParameter is params[2] as text, typically a duration in ms
	NumericParameter string

	// Params is the number of entries in the params array
	Params int

	// Raw is the payload exactly as received
	Raw []byte
}

// String returns a compact human-readable form for logs
func (r *Request) String() string {
	return fmt.Sprintf("Request{id=%s method=%s param=%q num=%q params=%d}",
		r.ID, r.Method, r.Parameter, r.NumericParameter, r.Params)
}

// Decode parses one request payload.
//
// The payload must be a JSON object with a scalar "id" (number or string)
// and a scalar "method". A missing or non-array "params" is treated as an
// empty list. Any other failure yields a MalformedRequest error carrying
// the raw payload. Decode never panics.
func Decode(payload []byte) (*Request, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, newMalformed("empty payload", payload, nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, newMalformed("payload is not a JSON object", payload, err)
	}

	id, err := extractID(fields["id"])
	if err != nil {
		return nil, newMalformed(err.Error(), payload, nil)
	}

	method, err := extractMethod(fields["method"])
	if err != nil {
		return nil, newMalformed(err.Error(), payload, nil)
	}

	req := &Request{
		ID:     id,
		Method: method,
		Raw:    payload,
	}

	var params []json.RawMessage
	if raw, ok := fields["params"]; ok {
		// A non-array params degrades to "no params" rather than failing
		if err := json.Unmarshal(raw, &params); err != nil {
			params = nil
		}
	}
	req.Params = len(params)
	if len(params) > 0 {
		req.Parameter = scalarText(params[0])
	}
	if len(params) > 2 {
		req.NumericParameter = scalarText(params[2])
	}

	return req, nil
}

// extractID returns the literal text of the id, preserving numeric formatting
func extractID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("missing id")
	}

	switch kindOf(raw) {
	case kindNumber:
		return string(raw), nil
	case kindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", fmt.Errorf("empty id")
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("id must be a number or string, got %s", kindOf(raw))
	}
}

// extractMethod returns the method name. Non-string scalars are kept as
// literal text and will simply not match any mapped method.
func extractMethod(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("missing method")
	}

	switch kindOf(raw) {
	case kindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid method: %w", err)
		}
		return s, nil
	case kindNumber, kindBool:
		return string(raw), nil
	default:
		return "", fmt.Errorf("method must be a scalar, got %s", kindOf(raw))
	}
}

// scalarText renders a params entry as text: strings unquoted, numbers and
// booleans as their literal, anything else as empty.
func scalarText(raw json.RawMessage) string {
	switch kindOf(raw) {
	case kindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case kindNumber, kindBool:
		return string(raw)
	default:
		return ""
	}
}

type jsonKind int

const (
	kindInvalid jsonKind = iota
	kindNull
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

func (k jsonKind) String() string {
	switch k {
	case kindNull:
		return "null"
	case kindBool:
		return "bool"
	case kindNumber:
		return "number"
	case kindString:
		return "string"
	case kindArray:
		return "array"
	case kindObject:
		return "object"
	default:
		return "invalid"
	}
}

// kindOf classifies an already-validated raw JSON value by its first byte
func kindOf(raw json.RawMessage) jsonKind {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return kindInvalid
	}
	switch c := raw[0]; {
	case c == 'n':
		return kindNull
	case c == 't' || c == 'f':
		return kindBool
	case c == '"':
		return kindString
	case c == '[':
		return kindArray
	case c == '{':
		return kindObject
	case c == '-' || (c >= '0' && c <= '9'):
		return kindNumber
	default:
		return kindInvalid
	}
}

// NewRequest builds a request payload in the documented shape, terminated
// by CRLF as real clients send it. Used by the probe command and tests.
func NewRequest(id int, method string, params ...any) ([]byte, error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	name, err := json.Marshal(method)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal method: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"id": `)
	buf.WriteString(strconv.Itoa(id))
	buf.WriteString(`, "method": `)
	buf.Write(name)
	buf.WriteString(`, "params": `)
	buf.Write(body)
	buf.WriteString("}\r\n")
	return buf.Bytes(), nil
}
