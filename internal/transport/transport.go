// Package transport opens the student side of a classlink connection.
// The session protocol runs over any net.Conn; a Dialer decides how
// that connection is established.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections to a session server.
type Dialer interface {
	Dial(ctx context.Context, address string) (net.Conn, error)
}

// DialerFunc adapts a function to a Dialer.  Tests use it to hand the
// client one end of a net.Pipe.
type DialerFunc func(ctx context.Context, address string) (net.Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, address string) (net.Conn, error) {
	return f(ctx, address)
}
