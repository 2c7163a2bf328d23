package console

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Stdio returns a console on the process's stdin/stdout.  When stdin
// is a terminal it is switched to raw mode for line editing; the
// returned restore func puts it back and must always be called.
func Stdio(srv Server) (*Console, func(), error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return New(srv, os.Stdin, os.Stdout), func() {}, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, err
	}
	rw := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}

	restore := func() { _ = term.Restore(fd, state) }
	return NewTerminal(srv, rw), restore, nil
}
