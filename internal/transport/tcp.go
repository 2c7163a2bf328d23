package transport

import (
	"context"
	"net"
	"time"

	clerr "classlink/internal/errors"
	"classlink/internal/retry"
)

// TCPDialer connects over TCP.  Retries > 0 retries refused, reset,
// unreachable or timed out dials with exponential backoff, which helps a
// student device that joins the ad hoc network before the instructor's
// server is up.  Other failures, such as a bad address or an unknown
// host, end the dial at once.
type TCPDialer struct {
	Timeout time.Duration
	Retries int
	// OnRetry, if set, is told about each failed attempt.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Dial connects to address.  Failures are *errors.NetworkError with
// Op "dial".
func (d *TCPDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}

	b := retry.New(d.Retries, 250*time.Millisecond, 4*time.Second)
	b.OnRetry = d.OnRetry

	var conn net.Conn
	err := b.Do(ctx, func(_ int) error {
		c, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			if ctx.Err() != nil || !clerr.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, clerr.Wrap("dial", address, err)
	}
	return conn, nil
}
