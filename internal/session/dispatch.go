package session

import (
	"sync"

	"classlink/internal/codec"
	clerr "classlink/internal/errors"
)

// Send encrypts plaintext under id's key and writes it as one frame to
// id's connection.
//
// An unregistered id yields an error matching ErrNotConnected and no
// I/O happens.  A failed write unregisters id, closes its socket and
// yields an error matching ErrSendFailed.  Writes to one connection are
// serialised; writes to different connections never wait on each other.
func (s *Session) Send(id, plaintext string) error {
	if s.stopping.Load() {
		return &clerr.SendError{ID: id, Err: clerr.ErrSessionClosed}
	}
	c, ok := s.clients.Lookup(id)
	if !ok {
		return clerr.NotConnected(id)
	}

	frame, err := codec.Encrypt(plaintext, codec.DeriveKey(id))
	if err != nil {
		return clerr.SendFailed(id, err)
	}

	n, err := c.writeFrame(frame)
	if err != nil {
		s.clients.UnregisterIf(id, c)
		_ = c.Close()
		s.metrics.SendFailed()
		c.log.Warn("send to %s failed: %v", id, err)
		return clerr.SendFailed(id, err)
	}
	s.metrics.FrameSent(n)
	return nil
}

// Broadcast sends plaintext to every connected identifier concurrently
// and returns the failures keyed by identifier.  An empty map means
// every send succeeded.
func (s *Session) Broadcast(plaintext string) map[string]error {
	targets := s.clients.Snapshot()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make(map[string]error)
	)
	for id := range targets {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.Send(id, plaintext); err != nil {
				mu.Lock()
				errs[id] = err
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	return errs
}
