package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/ipv4"
)

const (
	DefaultHopLimit = 15
	replyBufferSize = 10
)

// DefaultPayload is the fixed body of every datagram probe.
var DefaultPayload = []byte("hello world")

// Datagram sends one UDP datagram and waits for any reply.
//
// Any datagram arriving on the ephemeral port counts as a reply, and a
// silent service is indistinguishable from an unreachable one.
type Datagram struct {
	Timeout  time.Duration
	HopLimit int
	Payload  []byte
	Logger   *slog.Logger
}

func (d *Datagram) Probe(ctx context.Context, endpoint string) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("endpoint", endpoint, "protocol", "udp")

	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return err
	}

	peer, err := resolveUDP(ctx, host, port)
	if err != nil {
		log.Warn("peer_unresolved", "error", err)
	}

	conn, connected, err := openDatagram(peer, log)
	if err != nil {
		return fmt.Errorf("bind datagram socket: %w", err)
	}
	defer conn.Close()

	hopLimit := d.HopLimit
	if hopLimit <= 0 {
		hopLimit = DefaultHopLimit
	}
	if err := ipv4.NewConn(conn).SetTTL(hopLimit); err != nil {
		log.Warn("ttl_set_failed", "ttl", hopLimit, "error", err)
	}

	payload := d.Payload
	if len(payload) == 0 {
		payload = DefaultPayload
	}
	switch {
	case connected:
		_, err = conn.Write(payload)
	case peer != nil:
		_, err = conn.WriteToUDP(payload, peer)
	default:
		err = ErrNoPeer
	}
	if err != nil {
		return fmt.Errorf("send probe: %w", err)
	}

	deadline := time.Now().Add(effectiveTimeout(d.Timeout))
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, replyBufferSize)
	n, from, err := conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: no reply", ErrTimeout)
		}
		return fmt.Errorf("receive reply: %w", err)
	}
	log.Debug("datagram_reply", "bytes", n, "from", from)
	return nil
}

func resolveUDP(ctx context.Context, host, port string) (*net.UDPAddr, error) {
	portNum, err := net.DefaultResolver.LookupPort(ctx, "udp", port)
	if err != nil {
		return nil, err
	}
	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IPv4 address for %q", host)
	}
	return net.UDPAddrFromAddrPort(netip.AddrPortFrom(ips[0].Unmap(), uint16(portNum))), nil
}

// openDatagram binds an ephemeral wildcard socket. With a peer it is
// associated through connect; failing that the socket stays unconnected.
func openDatagram(peer *net.UDPAddr, log *slog.Logger) (*net.UDPConn, bool, error) {
	local := &net.UDPAddr{IP: net.IPv4zero}
	if peer != nil {
		conn, err := net.DialUDP("udp4", local, peer)
		if err == nil {
			return conn, true, nil
		}
		log.Warn("peer_connect_failed", "error", err)
	}
	conn, err := net.ListenUDP("udp4", local)
	return conn, false, err
}
