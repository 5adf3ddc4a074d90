package probe

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"verify-ovpn/internal/model"
)

func TestStreamProbeSucceedsAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	s := &Stream{Timeout: 2 * time.Second}
	if err := s.Probe(context.Background(), ln.Addr().String()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestStreamProbeFailsFastOnRefusedPort(t *testing.T) {
	addr := closedTCPAddr(t)

	timeout := 5 * time.Second
	s := &Stream{Timeout: timeout}
	start := time.Now()
	err := s.Probe(context.Background(), addr)
	if err == nil {
		t.Fatal("expected connection refused")
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("expected refusal, got timeout: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= timeout {
		t.Fatalf("refused connection took the full timeout (%s)", elapsed)
	}
}

func TestStreamProbeRejectsMalformedEndpoint(t *testing.T) {
	s := &Stream{Timeout: time.Second}
	for _, endpoint := range []string{"", "10.0.0.1", "-cert-tls:server:x"} {
		if err := s.Probe(context.Background(), endpoint); !errors.Is(err, ErrInvalidEndpoint) {
			t.Errorf("endpoint %q: expected ErrInvalidEndpoint, got %v", endpoint, err)
		}
	}
}

func TestDatagramProbeSucceedsOnReply(t *testing.T) {
	server, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()
	go func() {
		buf := make([]byte, 64)
		n, from, err := server.ReadFromUDP(buf)
		if err != nil {
			return
		}
		server.WriteToUDP(buf[:n], from)
	}()

	d := &Datagram{Timeout: 2 * time.Second}
	if err := d.Probe(context.Background(), server.LocalAddr().String()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestDatagramProbeTimesOutWithoutReply(t *testing.T) {
	silent, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer silent.Close()

	timeout := 300 * time.Millisecond
	d := &Datagram{Timeout: timeout}
	start := time.Now()
	err = d.Probe(context.Background(), silent.LocalAddr().String())
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed < timeout {
		t.Fatalf("probe gave up before the timeout: %s", elapsed)
	}
	if elapsed > timeout+2*time.Second {
		t.Fatalf("probe overran the timeout: %s", elapsed)
	}
}

func TestDatagramProbeFailsWithoutPeer(t *testing.T) {
	d := &Datagram{Timeout: time.Second}
	err := d.Probe(context.Background(), "127.0.0.1:no-such-service-name")
	if !errors.Is(err, ErrNoPeer) {
		t.Fatalf("expected ErrNoPeer, got %v", err)
	}
}

type recordingChecker struct {
	endpoints []string
	err       error
}

func (r *recordingChecker) Probe(_ context.Context, endpoint string) error {
	r.endpoints = append(r.endpoints, endpoint)
	return r.err
}

func TestDispatcherRoutesByProtocol(t *testing.T) {
	stream := &recordingChecker{}
	datagram := &recordingChecker{err: ErrTimeout}
	d := &Dispatcher{Stream: stream, Datagram: datagram}

	if err := d.Probe(context.Background(), model.Target{Protocol: model.TCP, Endpoint: "a:1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Probe(context.Background(), model.Target{Protocol: model.UDP, Endpoint: "b:2"}); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected datagram error to surface, got %v", err)
	}
	if err := d.Probe(context.Background(), model.Target{Protocol: "sctp", Endpoint: "c:3"}); !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("expected ErrUnknownProtocol, got %v", err)
	}
	if len(stream.endpoints) != 1 || stream.endpoints[0] != "a:1" {
		t.Fatalf("stream checker saw %v", stream.endpoints)
	}
	if len(datagram.endpoints) != 1 || datagram.endpoints[0] != "b:2" {
		t.Fatalf("datagram checker saw %v", datagram.endpoints)
	}
}

func closedTCPAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}
