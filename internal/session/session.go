// Package session runs the instructor side of a class meeting: it
// accepts student sockets, authenticates them with a challenge keyed to
// their identifier, relays encrypted chat frames, and tracks who is
// connected.
//
// A Session owns one listener and one registry.  Each accepted socket
// is served by its own handler goroutine; handlers report what happens
// through an Observer and never touch presentation code.
package session

import (
	"context"
	"crypto/rand"
	"math/big"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	clerr "classlink/internal/errors"
	"classlink/internal/metrics"
	"classlink/internal/registry"
	"classlink/util"
)

// Roster reports whether an identifier may join.
type Roster interface {
	Contains(id string) bool
}

// Observer receives session events.  Methods are called from handler
// goroutines and must not block for long.
type Observer interface {
	OnAuthenticated(id string)
	OnMessage(id, plaintext string)
	OnDisconnected(id string)
}

// MessageFunc adapts a plain function to an Observer that only cares
// about inbound chat messages.
type MessageFunc func(id, plaintext string)

func (f MessageFunc) OnAuthenticated(string)         {}
func (f MessageFunc) OnMessage(id, plaintext string) { f(id, plaintext) }
func (f MessageFunc) OnDisconnected(string)          {}

type nopObserver struct{}

func (nopObserver) OnAuthenticated(string)   {}
func (nopObserver) OnMessage(string, string) {}
func (nopObserver) OnDisconnected(string)    {}

// Options configures a Session.  Zero values fall back to the package
// defaults except where noted.
type Options struct {
	BindAddress      string
	Port             int           // 0 picks an ephemeral port
	HandshakeTimeout time.Duration // 0 disables the deadline
	WriteTimeout     time.Duration // 0 disables the deadline
	MaxFrameBytes    int
	BindRetries      int
	BindBackoff      time.Duration // first delay between bind attempts
	MaxBindBackoff   time.Duration
	GracePeriod      time.Duration

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Attendee records the first successful authentication of an
// identifier during the session.
type Attendee struct {
	ID        string
	FirstSeen time.Time
}

// Session is safe for concurrent use.
type Session struct {
	opts     Options
	roster   Roster
	observer Observer
	log      *util.Logger
	metrics  *metrics.Collector

	listener *listener
	clients  *registry.Registry[*Conn]

	// live holds every accepted socket, including those still
	// mid-handshake, so Stop can release them all.
	liveMu sync.Mutex
	live   map[*Conn]struct{}

	attendMu   sync.Mutex
	attendance map[string]time.Time

	newChallenge func() (string, error)

	wg       sync.WaitGroup
	done     chan struct{}
	stopping atomic.Bool
	stopOnce sync.Once
	started  atomic.Bool
}

// New binds the listening socket and returns a Session ready to Start.
// A bind failure is returned here as a *errors.NetworkError and no
// Session is created.
func New(opts Options, r Roster, obs Observer) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = util.Discard()
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = defaultMaxFrame
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = defaultGracePeriod
	}
	if obs == nil {
		obs = nopObserver{}
	}

	s := &Session{
		opts:         opts,
		roster:       r,
		observer:     obs,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		clients:      registry.New[*Conn](),
		live:         make(map[*Conn]struct{}),
		attendance:   make(map[string]time.Time),
		newChallenge: randomChallenge,
		done:         make(chan struct{}),
	}

	l, err := listen(opts, s.log)
	if err != nil {
		return nil, err
	}
	s.listener = l
	return s, nil
}

// Start runs the accept loop in its own goroutine.  Cancelling ctx
// stops the session.  Calling Start more than once has no effect.
func (s *Session) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("session listening on %s", s.Addr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.listener.acceptLoop(s.handle)
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()
}

// Stop ends the session.  It closes the listener and every connection,
// then waits up to the grace period for handlers to return.  Stop is
// idempotent and never fails; close errors are only logged.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		close(s.done)
		s.listener.stop()

		// Every registered connection is also live, so closing the live
		// set ends every handler's blocked read.
		s.liveMu.Lock()
		pending := make([]*Conn, 0, len(s.live))
		for c := range s.live {
			pending = append(pending, c)
		}
		s.liveMu.Unlock()
		for _, c := range pending {
			if err := c.Close(); err != nil && !clerr.IsClosed(err) {
				c.log.Verbose("close: %v", err)
			}
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			s.log.Info("session ended")
		case <-time.After(s.opts.GracePeriod):
			s.log.Warn("session ended with handlers still running after %s", s.opts.GracePeriod)
		}

		for id, err := range s.clients.CloseAll() {
			s.log.Verbose("closing %s: %v", id, err)
		}
	})
}

// Addr returns the bound listening address.
func (s *Session) Addr() net.Addr { return s.listener.addr() }

// Connected returns the identifiers currently registered, sorted.
func (s *Session) Connected() []string { return s.clients.IDs() }

// Metrics returns the session's collector, which may be nil.
func (s *Session) Metrics() *metrics.Collector { return s.metrics }

// Attendance returns every identifier that authenticated at least once
// during the session, ordered by first-seen time.
func (s *Session) Attendance() []Attendee {
	s.attendMu.Lock()
	out := make([]Attendee, 0, len(s.attendance))
	for id, t := range s.attendance {
		out = append(out, Attendee{ID: id, FirstSeen: t})
	}
	s.attendMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].ID < out[j].ID
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

func (s *Session) markPresent(id string) {
	s.attendMu.Lock()
	if _, ok := s.attendance[id]; !ok {
		s.attendance[id] = time.Now()
	}
	s.attendMu.Unlock()
}

func (s *Session) track(c *Conn) {
	s.liveMu.Lock()
	s.live[c] = struct{}{}
	s.liveMu.Unlock()
}

func (s *Session) untrack(c *Conn) {
	s.liveMu.Lock()
	delete(s.live, c)
	s.liveMu.Unlock()
}

// randomChallenge returns a decimal string in [1000, 9999].
func randomChallenge() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(challengeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+challengeMin, 10), nil
}

const (
	challengeMin  = 1000
	challengeSpan = 9000

	defaultMaxFrame    = 64 * 1024
	defaultGracePeriod = 5 * time.Second
)
