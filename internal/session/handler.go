package session

import (
	"fmt"
	"net"
	"strings"
	"time"

	"classlink/internal/codec"
	clerr "classlink/internal/errors"
)

// handle is called by the accept loop for every new socket.
func (s *Session) handle(raw net.Conn) {
	if s.stopping.Load() {
		_ = raw.Close()
		return
	}
	c := newConn(raw, s.opts.MaxFrameBytes, s.opts.WriteTimeout, s.log)
	s.track(c)
	if s.stopping.Load() {
		// Stop may have collected the live set before c joined it.
		_ = c.Close()
	}
	s.wg.Add(1)
	go s.serve(c)
}

// serve drives one connection through the authentication state
// machine and then relays its chat frames until it closes.
func (s *Session) serve(c *Conn) {
	defer s.wg.Done()
	defer s.untrack(c)

	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()
	c.log.Verbose("accepted")

	if err := s.authenticate(c); err != nil {
		s.metrics.AuthFailed()
		_ = c.Close()
		s.logEnd(c, err)
		return
	}
	if !s.register(c) {
		_ = c.Close()
		s.logEnd(c, clerr.ErrSessionClosed)
		return
	}

	err := s.readLoop(c)
	s.release(c, err)
}

// authenticate reads the identifier, issues a challenge encrypted under
// the identifier's key and checks the echoed response.  The challenge
// lives only on this goroutine's stack.
func (s *Session) authenticate(c *Conn) error {
	if t := s.opts.HandshakeTimeout; t > 0 {
		_ = c.raw.SetDeadline(time.Now().Add(t))
	}

	line, err := c.readFrame()
	if err != nil {
		return handshakeErr(c, "identify", "", err)
	}
	id := strings.TrimSpace(line)
	if id == "" || s.roster == nil || !s.roster.Contains(id) {
		// Unknown identifiers get no response at all.
		return &clerr.AuthError{Stage: "identify", RemoteAddr: c.remote, Identifier: id, Err: clerr.ErrUnknownIdentifier}
	}

	km := codec.DeriveKey(id)
	challenge, err := s.newChallenge()
	if err != nil {
		return handshakeErr(c, "challenge", id, err)
	}
	frame, err := codec.Encrypt(challenge, km)
	if err != nil {
		return handshakeErr(c, "challenge", id, err)
	}
	if _, err := c.writeFrame(frame); err != nil {
		return handshakeErr(c, "challenge", id, err)
	}
	c.setState(Challenged)
	c.log.Debug("challenge sent to %s", id)

	resp, err := c.readFrame()
	if err != nil {
		return handshakeErr(c, "response", id, err)
	}
	got, err := codec.Decrypt(resp, km)
	if err != nil {
		return handshakeErr(c, "response", id, err)
	}
	if !codec.Equal(got, challenge) {
		return &clerr.AuthError{Stage: "response", RemoteAddr: c.remote, Identifier: id, Err: clerr.ErrChallengeMismatch}
	}

	_ = c.raw.SetDeadline(time.Time{})
	c.identifier = id
	c.keys = km
	c.setState(Authenticated)
	return nil
}

// register makes c the live connection for its identifier.  Any
// previous connection for the same identifier is closed.
func (s *Session) register(c *Conn) bool {
	if s.stopping.Load() {
		return false
	}
	id := c.identifier
	// The old connection is marked inside the registry's critical
	// section, so its release either unregisters itself first and
	// reports the disconnect, or sees the mark and stays silent.
	prev, replaced := s.clients.Swap(id, c, func(old *Conn) { old.superseded.Store(true) })
	if replaced {
		c.log.Info("%s reconnected; closing connection %s", id, prev.cid)
		_ = prev.Close()
	}

	s.metrics.AuthSucceeded()
	s.markPresent(id)
	c.log.Info("%s authenticated", id)
	s.observer.OnAuthenticated(id)
	return true
}

func (s *Session) readLoop(c *Conn) error {
	for {
		frame, err := c.readFrame()
		if err != nil {
			return err
		}
		s.metrics.FrameReceived(len(frame))

		text, err := codec.Decrypt(frame, c.keys)
		if err != nil {
			return err
		}
		c.log.Debug("message from %s: %d bytes", c.identifier, len(text))
		s.observer.OnMessage(c.identifier, text)
	}
}

// release moves an authenticated connection to Closed.  The registry
// entry is removed only while it still points at c, and observers hear
// about the disconnect unless a newer connection took c's place.
func (s *Session) release(c *Conn, err error) {
	s.clients.UnregisterIf(c.identifier, c)
	_ = c.Close()
	s.logEnd(c, err)
	if !c.superseded.Load() {
		s.observer.OnDisconnected(c.identifier)
	}
}

func (s *Session) logEnd(c *Conn, err error) {
	switch {
	case err == nil:
		c.log.Verbose("closed")
	case clerr.IsClosed(err) || s.stopping.Load():
		c.log.Verbose("closed: %v", err)
	case clerr.Is(err, clerr.ErrAuthFailed):
		c.log.Warn("%v", err)
	default:
		s.metrics.RecordError(err.Error())
		c.log.Warn("connection error: %v", err)
	}
}

func handshakeErr(c *Conn, stage, id string, err error) error {
	var ne net.Error
	if clerr.As(err, &ne) && ne.Timeout() {
		err = fmt.Errorf("%w: %w", clerr.ErrTimeout, err)
	}
	return &clerr.AuthError{Stage: stage, RemoteAddr: c.remote, Identifier: id, Err: err}
}
