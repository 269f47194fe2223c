package probe

import (
	"context"
	"errors"
	"net"
	"time"
)

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// CheckReachable performs a TCP connect against addr and closes the
// connection right away. Name resolution failures are returned as
// *net.DNSError so callers can tell them apart from a refused port.
func CheckReachable(ctx context.Context, dialer Dialer, addr string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}

// isResolveError reports whether err came from host name resolution
func isResolveError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
