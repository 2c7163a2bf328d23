package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	clerr "classlink/internal/errors"
	"classlink/internal/student"
	"classlink/internal/transport"
	"classlink/util"
)

// JoinMode connects to an instructor's session as a student and relays
// lines between stdin/stdout and the encrypted chat.
type JoinMode struct {
	Dialer  transport.Dialer
	Address string
	Options student.Options
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *JoinMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *JoinMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run authenticates and then relays until stdin ends, the instructor
// ends the session, or ctx is cancelled.
func (m *JoinMode) Run(ctx context.Context) error {
	m.Logger.Verbose("connecting to %s as %s", m.Address, m.Options.Identifier)

	c, err := student.Join(ctx, m.Dialer, m.Address, m.Options)
	if err != nil {
		return fmt.Errorf("join %s: %w", m.Address, err)
	}
	defer c.Close()
	m.Logger.Info("joined class session at %s as %s", m.Address, c.Identifier())

	recvDone := make(chan error, 1)
	go func() {
		out := m.stdout()
		for {
			text, err := c.Receive()
			if err != nil {
				recvDone <- err
				return
			}
			fmt.Fprintf(out, "[instructor] %s\n", text)
		}
	}()

	sendDone := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(m.stdin())
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if err := c.Send(line); err != nil {
				sendDone <- err
				return
			}
		}
		sendDone <- sc.Err()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-recvDone:
		if clerr.IsClosed(err) {
			m.Logger.Info("session ended by instructor")
			return nil
		}
		return fmt.Errorf("receive: %w", err)
	case err := <-sendDone:
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}
}
