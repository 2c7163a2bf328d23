// Package config defines the runtime configuration for classlink and
// provides helpers for parsing rosters and server addresses.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	clerr "classlink/internal/errors"
)

// Mode selects which side of the protocol the process runs.
type Mode string

const (
	// ModeServe runs the instructor's session server.
	ModeServe Mode = "serve"
	// ModeJoin runs a student client against a session server.
	ModeJoin Mode = "join"
)

// Config holds every tuneable for a single classlink process.
type Config struct {
	Mode Mode

	// ── Session server ───────────────────────────────────────────────
	BindAddress      string
	Port             int
	Roster           []string // known identifiers
	RosterFile       string   // optional file, one or more ids per line
	WatchRoster      bool     // reload RosterFile on change
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxFrameBytes    int
	BindRetries      int
	GracePeriod      time.Duration
	Headless         bool // log events instead of running the console

	// ── Student client ───────────────────────────────────────────────
	Identifier  string
	ServerAddr  string // host:port
	DialTimeout time.Duration
	DialRetries int

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Mode:             ModeServe,
		BindAddress:      DefaultBindAddress,
		Port:             DefaultPort,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		MaxFrameBytes:    DefaultMaxFrameBytes,
		BindRetries:      DefaultBindRetries,
		GracePeriod:      DefaultGracePeriod,
		DialTimeout:      DefaultDialTimeout,
		Verbose:          1,
	}
}

// ListenAddr returns the host:port the session server binds.
func (c *Config) ListenAddr() string {
	host := c.BindAddress
	if host == "" {
		host = DefaultBindAddress
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// ── Roster helpers ───────────────────────────────────────────────────

// DefaultRoster returns the built-in class roster.
func DefaultRoster() []string {
	out := make([]string, rosterSize)
	for i := range out {
		out[i] = strconv.Itoa(rosterBase + i)
	}
	return out
}

// ParseRoster splits a comma separated identifier list, trimming
// whitespace and dropping blanks.
func ParseRoster(spec string) []string {
	var out []string
	for _, f := range strings.Split(spec, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ── Address parser ───────────────────────────────────────────────────

// ParseServerAddr accepts "host:port" or a bare host, in which case
// DefaultPort is used.
func ParseServerAddr(spec string) (string, error) {
	if spec == "" {
		return "", fmt.Errorf("server address is required")
	}
	host, portStr, err := net.SplitHostPort(spec)
	if err != nil {
		// No port: treat the whole spec as a host.
		if strings.Contains(err.Error(), "missing port") {
			return net.JoinHostPort(strings.Trim(spec, "[]"), strconv.Itoa(DefaultPort)), nil
		}
		return "", fmt.Errorf("invalid server address %q: %w", spec, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid server port %q", portStr)
	}
	if host == "" {
		return "", fmt.Errorf("server host is required")
	}
	return net.JoinHostPort(host, portStr), nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeServe:
		return c.validateServe()
	case ModeJoin:
		return c.validateJoin()
	default:
		return &clerr.ConfigError{
			Field:   "mode",
			Value:   string(c.Mode),
			Message: "unknown mode",
			Hint:    "use 'serve' or 'join'",
		}
	}
}

func (c *Config) validateServe() error {
	if c.Port < 1 || c.Port > 65535 {
		return &clerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    fmt.Sprintf("the default session port is %d", DefaultPort),
		}
	}
	if c.BindAddress != "" && net.ParseIP(c.BindAddress) == nil {
		return &clerr.ConfigError{
			Field:   "bind",
			Value:   c.BindAddress,
			Message: "not an IP address",
			Hint:    "pass the group owner address, or 0.0.0.0 for every interface",
		}
	}
	if len(c.Roster) == 0 && c.RosterFile == "" {
		return &clerr.ConfigError{
			Field:   "roster",
			Message: "no student identifiers configured",
			Hint:    "use --roster id1,id2 or --roster-file path",
		}
	}
	if c.WatchRoster && c.RosterFile == "" {
		return &clerr.ConfigError{
			Field:   "watch-roster",
			Message: "requires --roster-file",
		}
	}
	if c.MaxFrameBytes < 0 {
		return &clerr.ConfigError{Field: "max-frame", Value: c.MaxFrameBytes, Message: "must not be negative"}
	}
	if c.BindRetries < 0 {
		return &clerr.ConfigError{Field: "bind-retries", Value: c.BindRetries, Message: "must not be negative"}
	}
	if c.HandshakeTimeout < 0 || c.WriteTimeout < 0 {
		return &clerr.ConfigError{Field: "timeout", Message: "timeouts must not be negative"}
	}
	return nil
}

func (c *Config) validateJoin() error {
	if c.Identifier == "" {
		return &clerr.ConfigError{
			Field:   "id",
			Message: "required in join mode",
			Hint:    "pass your attendance code, e.g. --id 816117992",
		}
	}
	if strings.ContainsAny(c.Identifier, "\r\n") {
		return &clerr.ConfigError{Field: "id", Value: c.Identifier, Message: "must be a single line"}
	}
	if c.ServerAddr == "" {
		return &clerr.ConfigError{
			Field:   "server",
			Message: "required in join mode",
			Hint:    "classlink join --id <id> <host[:port]>",
		}
	}
	if _, err := ParseServerAddr(c.ServerAddr); err != nil {
		return &clerr.ConfigError{Field: "server", Value: c.ServerAddr, Message: err.Error()}
	}
	if c.DialRetries < 0 {
		return &clerr.ConfigError{Field: "dial-retries", Value: c.DialRetries, Message: "must not be negative"}
	}
	return nil
}
