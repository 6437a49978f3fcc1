// Package bulbclient speaks the Yeelight LAN control protocol as a client.
//
// It is used by "yeebridge probe" to exercise a running gateway, or a real
// bulb, from the command line. Each call opens a fresh TCP connection to port
// 55443, writes one CRLF-terminated JSON request and reads one JSON reply.
//
// Only connection establishment is retried, with optional exponential
// backoff. A request that reached the peer is never resent because toggle is
// not idempotent.
//
// # Usage Example
//
//	c := bulbclient.NewClient("192.168.1.20", 0)
//	reply, err := c.Toggle(ctx)
//	if err != nil {
//	    for _, hint := range bulbclient.TroubleshootingHints(err) {
//	        fmt.Println(hint)
//	    }
//	}
//	fmt.Println(reply.OK())
package bulbclient
