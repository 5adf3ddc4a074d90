package probe

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Stream checks that a TCP handshake to the endpoint completes.
type Stream struct {
	Timeout time.Duration
}

// Probe dials the endpoint once over IPv4. The dialer only returns a
// connection after the socket reports writable with no pending error, so
// an established connection is the success condition.
func (s *Stream) Probe(ctx context.Context, endpoint string) error {
	if _, _, err := splitEndpoint(endpoint); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, effectiveTimeout(s.Timeout))
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp4", endpoint)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("tcp connect: %w", err)
	}
	return conn.Close()
}
