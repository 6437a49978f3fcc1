package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type advertised by the gateway
	ServiceType = "_yeelight._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for gateway discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the bulb control port
	DefaultPort = 55443
)

// Advertisement is a live mDNS registration
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers the bulb on mDNS until Shutdown is called
func Advertise(info BulbInfo) (*Advertisement, error) {
	instance := fmt.Sprintf("yeelink-light-%s_%s", info.Model, strings.TrimPrefix(info.IDString(), "0x"))

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, info.Port, info.TXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the registration
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Scanner handles mDNS gateway discovery
type Scanner struct {
	// Timeout is the maximum time to wait for gateway discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForGateways discovers all advertised bulbs on the local network
func (s *Scanner) ScanForGateways() ([]*Gateway, error) {
	return s.ScanForGatewaysWithContext(context.Background())
}

// ScanForGatewaysWithContext discovers gateways with a custom context
func (s *Scanner) ScanForGatewaysWithContext(ctx context.Context) ([]*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var (
		mu       sync.Mutex
		gateways = make([]*Gateway, 0)
		seen     = make(map[string]bool)
		done     = make(chan struct{})
	)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(done)
		for entry := range entries {
			gw := s.parseServiceEntry(entry)
			if gw == nil {
				continue
			}
			mu.Lock()
			if !seen[gw.ID] {
				seen[gw.ID] = true
				gateways = append(gateways, gw)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once the context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return gateways, nil
}

// parseServiceEntry converts a zeroconf service entry to a Gateway.
// Entries without an id TXT record are not bulbs and yield nil.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Gateway {
	if entry == nil {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	id := metadata["id"]
	if id == "" {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	name := metadata["name"]
	if name == "" {
		name = entry.Instance
	}

	return &Gateway{
		ID:           id,
		Name:         name,
		Model:        metadata["model"],
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForGateways is a convenience function to scan with a custom timeout
func ScanForGateways(timeout time.Duration) ([]*Gateway, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForGateways()
}
