package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/yeebridge/internal/protocol"
)

// BulbInfo is how the gateway presents itself to discovery clients
type BulbInfo struct {
	// ID is the 64-bit device id, rendered as 0x%016x on the wire
	ID uint64

	// Model is the bulb model reported to clients ("mono", "color", "stripe", ...)
	Model string

	// FirmwareVersion is the fw_ver field
	FirmwareVersion int

	// Name is the user-visible bulb name
	Name string

	// Host is the address clients should connect to (empty = derived per request)
	Host string

	// Port is the control port, normally 55443
	Port int

	// Support lists the methods advertised in the support field
	Support []string
}

// DefaultBulbInfo returns the identity used when nothing is configured
func DefaultBulbInfo() BulbInfo {
	return BulbInfo{
		ID:              0x0000000000b1d9e0,
		Model:           "mono",
		FirmwareVersion: 18,
		Name:            "yeebridge",
		Port:            55443,
		Support:         protocol.KnownMethods(),
	}
}

// IDString renders the id the way bulbs do
func (b BulbInfo) IDString() string {
	return fmt.Sprintf("0x%016x", b.ID)
}

// Location returns the yeelight:// URL for the given host
func (b BulbInfo) Location(host string) string {
	return "yeelight://" + net.JoinHostPort(host, strconv.Itoa(b.Port))
}

// TXT returns the mDNS TXT records mirroring the SSDP header fields
func (b BulbInfo) TXT() []string {
	return []string{
		"id=" + b.IDString(),
		"model=" + b.Model,
		"fw_ver=" + strconv.Itoa(b.FirmwareVersion),
		"name=" + b.Name,
		"support=" + strings.Join(b.Support, " "),
	}
}

// Gateway is a bulb endpoint found on the network
type Gateway struct {
	// ID is the advertised device id (e.g. "0x0000000000b1d9e0")
	ID string

	// Name is the advertised bulb name
	Name string

	// Model is the advertised model
	Model string

	// Hostname is the mDNS hostname
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the control port
	Port int

	// Metadata contains all TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the gateway was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the gateway
func (g *Gateway) String() string {
	return fmt.Sprintf("Bulb %s (%s, %s) at %s", g.Name, g.ID, g.Model, g.Address())
}

// Address returns host:port for the control channel
func (g *Gateway) Address() string {
	return net.JoinHostPort(g.IP, strconv.Itoa(g.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}
