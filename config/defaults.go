package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the session server's listening port.
	DefaultPort = 8888

	// DefaultBindAddress binds every local interface.  Once the ad hoc
	// group has formed, callers usually pass the group owner address.
	DefaultBindAddress = "0.0.0.0"

	// DefaultHandshakeTimeout bounds identify + challenge + response.
	DefaultHandshakeTimeout = 30 * time.Second

	// DefaultWriteTimeout bounds a single outbound frame write so that
	// one stalled student cannot hold up the instructor.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMaxFrameBytes caps one line on the wire.
	DefaultMaxFrameBytes = 64 * 1024

	// DefaultBindRetries is how many extra bind attempts are made when
	// the bind address is not yet available.
	DefaultBindRetries = 0

	// DefaultBindBackoff is the first delay between bind attempts.
	DefaultBindBackoff = 500 * time.Millisecond

	// DefaultMaxBindBackoff caps the exponential bind backoff.
	DefaultMaxBindBackoff = 8 * time.Second

	// DefaultGracePeriod is how long Stop waits for handlers to finish.
	DefaultGracePeriod = 5 * time.Second

	// DefaultDialTimeout is the student client's connect timeout.
	DefaultDialTimeout = 10 * time.Second

	// rosterBase and rosterSize describe the default class roster:
	// ten consecutive student numbers.
	rosterBase = 816117992
	rosterSize = 10
)
