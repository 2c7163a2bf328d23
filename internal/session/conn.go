package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"classlink/internal/codec"
	"classlink/util"
)

// State is a connection's position in the authentication state machine.
type State int32

const (
	// AwaitingIdentifier: nothing read yet.
	AwaitingIdentifier State = iota
	// Challenged: a known identifier was read and its challenge sent.
	Challenged
	// Authenticated: the challenge was answered; chat frames flow.
	Authenticated
	// Closed is terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingIdentifier:
		return "awaiting-identifier"
	case Challenged:
		return "challenged"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one accepted socket.  It owns the socket exclusively; the
// registry only holds a reference to it.
//
// Reads happen on the handler goroutine only.  Writes come from the
// handler (challenge) and from outbound dispatch, so they are
// serialised by wmu.
type Conn struct {
	cid    string // short connection id for logs
	remote string
	raw    net.Conn
	reader *codec.FrameReader

	wmu          sync.Mutex
	writer       *codec.FrameWriter
	writeTimeout time.Duration

	// identifier and keys are written once by the handler before the
	// connection is registered and never change afterwards.
	identifier string
	keys       codec.KeyMaterial

	state      atomic.Int32
	superseded atomic.Bool // a newer connection took over the identifier
	closeOnce  sync.Once
	closeErr   error
	log        *util.Logger
}

func newConn(raw net.Conn, maxFrame int, writeTimeout time.Duration, logger *util.Logger) *Conn {
	cid := uuid.NewString()[:8]
	remote := "pipe"
	if a := raw.RemoteAddr(); a != nil {
		remote = a.String()
	}
	return &Conn{
		cid:          cid,
		remote:       remote,
		raw:          raw,
		reader:       codec.NewFrameReader(raw, maxFrame),
		writer:       codec.NewFrameWriter(raw),
		writeTimeout: writeTimeout,
		log:          logger.With("conn=" + cid + " " + remote),
	}
}

// ID returns the authenticated identifier, or "" before authentication.
func (c *Conn) ID() string { return c.identifier }

// RemoteAddr returns the peer address as a string.
func (c *Conn) RemoteAddr() string { return c.remote }

// State returns the current state.
func (c *Conn) State() State { return State(c.state.Load()) }

func (c *Conn) setState(s State) {
	// Closed is never left.
	for {
		cur := c.state.Load()
		if State(cur) == Closed {
			return
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Close releases the socket.  It is idempotent and safe from any
// goroutine; a blocked read or write on the socket fails promptly.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(Closed))
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}

// writeFrame puts one frame on the wire under the write lock, bounded
// by the write timeout.
func (c *Conn) writeFrame(frame string) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.writer.WriteFrame(frame)
}

// readFrame returns the next inbound frame.
func (c *Conn) readFrame() (string, error) {
	return c.reader.ReadFrame()
}
