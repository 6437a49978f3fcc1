package protocol

// ResultOK is the only result value the gateway ever reports
const ResultOK = "ok"

// Ack builds the acknowledgement for a request id:
//
//	{"id": <id>, "result": ["ok"]}
//
// The id is inserted as the literal the client sent so numeric formatting
// survives the round trip. No line terminator is appended; the connection
// is closed straight after the write.
func Ack(id string) []byte {
	buf := make([]byte, 0, len(id)+26)
	buf = append(buf, `{"id": `...)
	buf = append(buf, id...)
	buf = append(buf, `, "result": ["`...)
	buf = append(buf, ResultOK...)
	buf = append(buf, `"]}`...)
	return buf
}
