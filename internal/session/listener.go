package session

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	clerr "classlink/internal/errors"
	"classlink/internal/retry"
	"classlink/util"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// listener owns the listening socket and the accept loop.
type listener struct {
	ln        net.Listener
	log       *util.Logger
	running   atomic.Bool
	closeOnce sync.Once
}

// listen binds the configured address.  With BindRetries > 0 a failed
// bind is retried with exponential backoff, for an ad hoc network
// interface that has not been assigned its address yet.
func listen(opts Options, logger *util.Logger) (*listener, error) {
	addr := util.FormatAddr(opts.BindAddress, opts.Port)

	b := retry.New(opts.BindRetries, opts.BindBackoff, opts.MaxBindBackoff)
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("bind %s failed (attempt %d): %v; retrying in %s", addr, attempt, err, wait.Round(time.Millisecond))
	}

	var ln net.Listener
	err := b.Do(context.Background(), func(_ int) error {
		var lerr error
		ln, lerr = net.Listen("tcp", addr)
		return lerr
	})
	if err != nil {
		return nil, clerr.Wrap("listen", addr, err)
	}

	l := &listener{ln: ln, log: logger}
	l.running.Store(true)
	return l, nil
}

func (l *listener) addr() net.Addr { return l.ln.Addr() }

// acceptLoop accepts sockets one at a time and hands each to handle,
// which must not block.  It returns once stop has been called.
func (l *listener) acceptLoop(handle func(net.Conn)) {
	var backoff time.Duration
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if !l.running.Load() || clerr.Is(err, net.ErrClosed) {
				return
			}
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else if backoff *= 2; backoff > maxAcceptBackoff {
				backoff = maxAcceptBackoff
			}
			l.log.Warn("%v; retrying in %s", clerr.Wrap("accept", l.ln.Addr().String(), err), backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		handle(conn)
	}
}

// stop closes the listening socket so a blocked Accept returns.  Safe
// to call from any goroutine, any number of times.
func (l *listener) stop() {
	l.running.Store(false)
	l.closeOnce.Do(func() {
		if err := l.ln.Close(); err != nil {
			l.log.Verbose("closing listener: %v", err)
		}
	})
}
