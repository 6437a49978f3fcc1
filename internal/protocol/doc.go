// Package protocol implements the bulb side of the Yeelight LAN control
// protocol as spoken on TCP port 55443.
//
// Clients send one JSON-RPC style object per request:
//
//	{"id": 1, "method": "set_power", "params": ["on", "smooth", 300]}
//	{"id": 2, "method": "set_ct_abx", "params": [1700, "smooth", 300]}
//	{"id": 3, "method": "toggle", "params": []}
//
// and a bulb answers with a fixed-shape acknowledgement:
//
//	{"id": 1, "result": ["ok"]}
//
// # Decoding
//
// ReadPayload frames exactly one JSON value off a connection, bounded in
// size. Decode parses it into a Request: id and method are mandatory,
// params[0] becomes Parameter and params[2] NumericParameter. Anything that
// cannot yield an id and method is a MalformedRequest; everything else is
// best-effort so odd parameter shapes degrade to an unrecognized command
// instead of an error.
//
// # Error Handling
//
// GatewayError carries an ErrorType:
//   - MalformedRequest: bad payload, no ack is possible
//   - UnrecognizedCommand: valid request without a mapped code, ack is sent
//   - DeliveryFailure: the transmitter rejected a code
//   - TransportFailure: the connection dropped or timed out
//
// # Thread Safety
//
// All functions in this package are stateless and safe for concurrent use.
package protocol
