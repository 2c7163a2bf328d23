// Package student implements the student side of the classlink
// protocol: connect, prove knowledge of the identifier's key by echoing
// the server's challenge, then exchange encrypted chat frames.
package student

import (
	"context"
	"net"
	"sync"
	"time"

	"classlink/internal/codec"
	clerr "classlink/internal/errors"
	"classlink/internal/transport"
	"classlink/util"
)

// Options configures a Client.
type Options struct {
	Identifier       string
	HandshakeTimeout time.Duration // 0 disables the deadline
	MaxFrameBytes    int
	Logger           *util.Logger
}

// Client is one authenticated student connection.  Send may be called
// from any goroutine; Receive must be called from a single goroutine.
type Client struct {
	id   string
	keys codec.KeyMaterial
	conn net.Conn
	log  *util.Logger

	reader *codec.FrameReader

	wmu    sync.Mutex
	writer *codec.FrameWriter

	closeOnce sync.Once
}

// Join dials address with d and authenticates as opts.Identifier.
func Join(ctx context.Context, d transport.Dialer, address string, opts Options) (*Client, error) {
	conn, err := d.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	c := New(conn, opts)
	if err := c.Authenticate(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an established connection.  Call Authenticate before
// sending chat frames.
func New(conn net.Conn, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = util.Discard()
	}
	max := opts.MaxFrameBytes
	if max <= 0 {
		max = codec.DefaultMaxFrame
	}
	c := &Client{
		id:     opts.Identifier,
		keys:   codec.DeriveKey(opts.Identifier),
		conn:   conn,
		log:    opts.Logger.With("student=" + opts.Identifier),
		reader: codec.NewFrameReader(conn, max),
		writer: codec.NewFrameWriter(conn),
	}
	if opts.HandshakeTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(opts.HandshakeTimeout))
	}
	return c
}

// Identifier returns the identifier the client authenticates as.
func (c *Client) Identifier() string { return c.id }

// Authenticate runs the handshake: send the identifier, decrypt the
// challenge and send it back encrypted.  A server that does not know
// the identifier closes the socket, which surfaces as an AuthError
// wrapping io.EOF.
func (c *Client) Authenticate() error {
	if err := c.writeLine(c.id); err != nil {
		return c.authErr("identify", err)
	}

	frame, err := c.reader.ReadFrame()
	if err != nil {
		return c.authErr("challenge", err)
	}
	challenge, err := codec.Decrypt(frame, c.keys)
	if err != nil {
		return c.authErr("challenge", err)
	}
	c.log.Debug("received challenge")

	resp, err := codec.Encrypt(challenge, c.keys)
	if err != nil {
		return c.authErr("response", err)
	}
	if err := c.writeLine(resp); err != nil {
		return c.authErr("response", err)
	}

	_ = c.conn.SetDeadline(time.Time{})
	c.log.Verbose("handshake complete")
	return nil
}

// Send encrypts text and writes it as one frame.
func (c *Client) Send(text string) error {
	frame, err := codec.Encrypt(text, c.keys)
	if err != nil {
		return err
	}
	if err := c.writeLine(frame); err != nil {
		return clerr.Wrap("write", c.remote(), err)
	}
	return nil
}

// Receive blocks for the next chat frame and returns its plaintext.
// It returns io.EOF once the server closes the connection.
func (c *Client) Receive() (string, error) {
	frame, err := c.reader.ReadFrame()
	if err != nil {
		return "", err
	}
	return codec.Decrypt(frame, c.keys)
}

// Close releases the socket.  It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.conn.Close() })
	return err
}

func (c *Client) writeLine(s string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.writer.WriteFrame(s)
	return err
}

func (c *Client) remote() string {
	if a := c.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return "pipe"
}

func (c *Client) authErr(stage string, err error) error {
	return &clerr.AuthError{
		Stage:      stage,
		RemoteAddr: c.remote(),
		Identifier: c.id,
		Err:        err,
	}
}
