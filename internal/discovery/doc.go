// Package discovery makes the gateway findable by Yeelight clients and finds
// other bulbs on the network.
//
// Two mechanisms are provided:
//
//   - SSDP: Yeelight apps multicast "M-SEARCH ... ST: wifi_bulb" to
//     239.255.255.250:1982 and expect a unicast "HTTP/1.1 200 OK" reply whose
//     Location header is yeelight://<host>:55443. Responder answers those
//     searches and multicasts periodic NOTIFY messages.
//   - mDNS: Advertise registers the bulb as "_yeelight._tcp" with TXT records
//     mirroring the SSDP headers; Scanner browses the same service type.
//
// # Usage Example
//
//	responder := discovery.NewResponder(discovery.DefaultBulbInfo())
//	go responder.ListenAndServe(ctx)
//
//	gateways, err := discovery.ScanForGateways(5 * time.Second)
//	for _, gw := range gateways {
//	    fmt.Println(gw)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Clients must be on the same local network segment
// - Firewall must allow UDP 1982 (SSDP) and UDP 5353 (mDNS)
package discovery
