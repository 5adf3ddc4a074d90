package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"verify-ovpn/internal/model"
)

// DefaultTimeout bounds a single probe attempt.
const DefaultTimeout = 15 * time.Second

var (
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrTimeout         = errors.New("probe timed out")
	ErrNoPeer          = errors.New("no peer address to send to")
	ErrUnknownProtocol = errors.New("unknown protocol")
)

// Checker probes a single endpoint. A nil error means reachable.
type Checker interface {
	Probe(ctx context.Context, endpoint string) error
}

// Dispatcher routes a target to the checker for its protocol.
type Dispatcher struct {
	Stream   Checker
	Datagram Checker
}

func NewDispatcher(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		Stream:   &Stream{Timeout: timeout},
		Datagram: &Datagram{Timeout: timeout, Logger: logger},
	}
}

func (d *Dispatcher) Probe(ctx context.Context, target model.Target) error {
	switch target.Protocol {
	case model.TCP:
		return d.Stream.Probe(ctx, target.Endpoint)
	case model.UDP:
		return d.Datagram.Probe(ctx, target.Endpoint)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProtocol, target.Protocol)
	}
}

func splitEndpoint(endpoint string) (host, port string, err error) {
	host, port, err = net.SplitHostPort(endpoint)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if host == "" || port == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}
	return host, port, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}
