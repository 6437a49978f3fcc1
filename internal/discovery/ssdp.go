package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/muurk/yeebridge/internal/logging"
	"go.uber.org/zap"
)

const (
	// SSDPAddress is the multicast group Yeelight clients search on
	SSDPAddress = "239.255.255.250:1982"

	// SearchTarget is the ST value clients send when looking for bulbs
	SearchTarget = "wifi_bulb"

	// DefaultAnnounceInterval is how often a NOTIFY is multicast
	DefaultAnnounceInterval = 60 * time.Second

	ssdpServer    = "POSIX UPnP/1.0 YGLC/1"
	ssdpMaxAge    = 3600
	ssdpBufSize   = 2048
	readPollDelay = time.Second
)

// IsSearchRequest reports whether packet is an M-SEARCH for Yeelight bulbs
func IsSearchRequest(packet []byte) bool {
	reader := textproto.NewReader(bufio.NewReader(bytes.NewReader(packet)))

	line, err := reader.ReadLine()
	if err != nil {
		return false
	}
	fields := strings.Fields(line)
	if len(fields) < 1 || !strings.EqualFold(fields[0], "M-SEARCH") {
		return false
	}

	header, err := reader.ReadMIMEHeader()
	if err != nil && len(header) == 0 {
		return false
	}

	st := strings.TrimSpace(header.Get("St"))
	return strings.EqualFold(st, SearchTarget) || strings.EqualFold(st, "ssdp:all")
}

// BuildSearchResponse renders the unicast reply to an M-SEARCH
func BuildSearchResponse(info BulbInfo, host, power string) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&b, "Cache-Control: max-age=%d\r\n", ssdpMaxAge)
	b.WriteString("Date: \r\n")
	b.WriteString("Ext: \r\n")
	writeBulbHeaders(&b, info, host, power)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// BuildNotify renders the multicast ssdp:alive announcement
func BuildNotify(info BulbInfo, host, power string) []byte {
	var b strings.Builder
	b.WriteString("NOTIFY * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "Host: %s\r\n", SSDPAddress)
	fmt.Fprintf(&b, "Cache-Control: max-age=%d\r\n", ssdpMaxAge)
	b.WriteString("NTS: ssdp:alive\r\n")
	writeBulbHeaders(&b, info, host, power)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func writeBulbHeaders(b *strings.Builder, info BulbInfo, host, power string) {
	fmt.Fprintf(b, "Location: %s\r\n", info.Location(host))
	fmt.Fprintf(b, "Server: %s\r\n", ssdpServer)
	fmt.Fprintf(b, "id: %s\r\n", info.IDString())
	fmt.Fprintf(b, "model: %s\r\n", info.Model)
	fmt.Fprintf(b, "fw_ver: %d\r\n", info.FirmwareVersion)
	fmt.Fprintf(b, "support: %s\r\n", strings.Join(info.Support, " "))
	fmt.Fprintf(b, "power: %s\r\n", power)
	fmt.Fprintf(b, "name: %s\r\n", info.Name)
}

// Responder answers SSDP searches on behalf of the gateway
type Responder struct {
	// Info is the advertised identity
	Info BulbInfo

	// Power reports the power field; nil always reports "on"
	Power func() string

	// AnnounceInterval between NOTIFY messages (0 = DefaultAnnounceInterval)
	AnnounceInterval time.Duration
}

// NewResponder creates a responder for info
func NewResponder(info BulbInfo) *Responder {
	return &Responder{
		Info:             info,
		AnnounceInterval: DefaultAnnounceInterval,
	}
}

func (r *Responder) power() string {
	if r.Power == nil {
		return "on"
	}
	return r.Power()
}

// hostFor returns the address to advertise to the peer at remote
func (r *Responder) hostFor(remote net.Addr) string {
	if r.Info.Host != "" {
		return r.Info.Host
	}
	if ip := localIPFor(remote); ip != "" {
		return ip
	}
	return "127.0.0.1"
}

// localIPFor finds the local address the kernel would route to remote from.
// Dialing UDP sends no packets.
func localIPFor(remote net.Addr) string {
	udp, ok := remote.(*net.UDPAddr)
	if !ok || udp.IP == nil {
		return ""
	}
	conn, err := net.DialUDP("udp", nil, udp)
	if err != nil {
		return ""
	}
	defer conn.Close()
	if local, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return local.IP.String()
	}
	return ""
}

// Serve reads packets from conn until ctx is done, replying to searches.
// The caller owns conn.
func (r *Responder) Serve(ctx context.Context, conn net.PacketConn) error {
	buf := make([]byte, ssdpBufSize)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(readPollDelay)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to read SSDP packet: %w", err)
		}

		if !IsSearchRequest(buf[:n]) {
			continue
		}

		host := r.hostFor(addr)
		resp := BuildSearchResponse(r.Info, host, r.power())
		if _, err := conn.WriteTo(resp, addr); err != nil {
			logging.Warn("Failed to answer SSDP search",
				zap.String("remote_addr", addr.String()),
				zap.Error(err),
			)
			continue
		}

		logging.Debug("Answered SSDP search",
			zap.String("remote_addr", addr.String()),
			zap.String("location", r.Info.Location(host)),
		)
	}
}

// ListenAndServe joins the SSDP multicast group, multicasts periodic
// NOTIFY messages and answers searches until ctx is done
func (r *Responder) ListenAndServe(ctx context.Context) error {
	group, err := net.ResolveUDPAddr("udp4", SSDPAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", SSDPAddress, err)
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return fmt.Errorf("failed to join SSDP group: %w", err)
	}
	defer conn.Close()

	logging.Info("SSDP responder listening",
		zap.String("group", SSDPAddress),
		zap.String("id", r.Info.IDString()),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.announce(ctx, group)
	}()

	err = r.Serve(ctx, conn)
	wg.Wait()
	return err
}

// announce multicasts NOTIFY until ctx is done
func (r *Responder) announce(ctx context.Context, group *net.UDPAddr) {
	interval := r.AnnounceInterval
	if interval <= 0 {
		interval = DefaultAnnounceInterval
	}

	conn, err := net.DialUDP("udp4", nil, group)
	if err != nil {
		logging.Warn("SSDP announcements disabled", zap.Error(err))
		return
	}
	defer conn.Close()

	send := func() {
		host := r.Info.Host
		if host == "" {
			if local, ok := conn.LocalAddr().(*net.UDPAddr); ok {
				host = local.IP.String()
			}
		}
		if _, err := conn.Write(BuildNotify(r.Info, host, r.power())); err != nil {
			logging.Debug("SSDP announcement failed", zap.Error(err))
		}
	}

	send()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}
