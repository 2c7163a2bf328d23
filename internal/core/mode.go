// Package core is the orchestration layer.  It composes the session
// server, roster, console and student client into complete operational
// modes and provides a builder that selects the right mode from a
// Config.
//
// Architecture layers (bottom → top):
//
//	codec  →  registry/roster  →  session/student  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of classlink (serve or
// join).  Each mode owns its full lifecycle from socket setup to
// teardown.
type Mode interface {
	Run(ctx context.Context) error
}
