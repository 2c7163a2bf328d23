// Package errors provides domain-specific error types for classlink.
//
// These types carry structured context (operation, address, handshake
// stage, recipient) that helps callers decide how to handle failures and
// provides better diagnostics than plain string wrapping.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected      = errors.New("not connected")
	ErrSendFailed        = errors.New("send failed")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrChallengeMismatch = errors.New("challenge mismatch")
	ErrFrameDecode       = errors.New("malformed frame")
	ErrFrameTooLong      = errors.New("frame too long")
	ErrSessionClosed     = errors.New("session is closed")
	ErrTimeout           = errors.New("operation timed out")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "listen", "accept", "dial", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError describes a rejected handshake.  Stage is the state the
// connection was in when it was rejected ("identify", "challenge",
// "response").
type AuthError struct {
	Stage      string
	RemoteAddr string
	Identifier string // empty when the identifier was never read
	Err        error
}

func (e *AuthError) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("auth %s from %s: %v", e.Stage, e.RemoteAddr, e.Err)
	}
	return fmt.Sprintf("auth %s from %s (%q): %v", e.Stage, e.RemoteAddr, clip(e.Identifier), e.Err)
}

// maxLoggedIdentifier bounds how much of a client-supplied identifier
// reaches an error message.
const maxLoggedIdentifier = 32

func clip(s string) string {
	if len(s) <= maxLoggedIdentifier {
		return s
	}
	return s[:maxLoggedIdentifier] + "..."
}

// Unwrap exposes both the cause and ErrAuthFailed so callers can match
// either.
func (e *AuthError) Unwrap() []error { return []error{ErrAuthFailed, e.Err} }

// SendError is returned by outbound dispatch.  Err is ErrNotConnected
// when the recipient was never registered, or wraps ErrSendFailed when
// the write itself failed.
type SendError struct {
	ID  string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.ID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// SendFailed wraps a write error for recipient id so that it matches
// both ErrSendFailed and the underlying cause.
func SendFailed(id string, err error) *SendError {
	return &SendError{ID: id, Err: fmt.Errorf("%w: %w", ErrSendFailed, err)}
}

// NotConnected reports that id has no registered connection.
func NotConnected(id string) *SendError {
	return &SendError{ID: id, Err: ErrNotConnected}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsClosed reports whether err is the ordinary result of the peer going
// away or of our side closing the socket.  Such errors end a connection
// but are not worth logging loudly.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// classifyRetryable inspects standard library error types.  A refused,
// reset or unreachable peer and a timeout are retryable: the other side
// may simply not be up yet.  Name resolution failures are retryable only
// when the resolver says so.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	for _, errno := range retryableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	return false
}

var retryableErrnos = []error{ //nolint:gochecknoglobals
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
