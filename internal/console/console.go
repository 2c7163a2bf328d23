// Package console is the instructor's interactive front end to a
// running session.  It prints joins, leaves and chat messages as they
// happen and turns typed lines into outbound messages.
//
// Commands:
//
//	/to <id> [message]   pick the chat partner, optionally sending a message
//	/all <message>       send to every connected student
//	/who                 list connected students
//	/attendance          list everyone who joined, with first-seen time
//	/stats               print session metrics as JSON
//	/help                show this list
//	/quit                end the session
//
// Any other line goes to the current chat partner.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"classlink/internal/metrics"
	"classlink/internal/session"
)

// Server is the part of a session the console drives.
type Server interface {
	Send(id, text string) error
	Broadcast(text string) map[string]error
	Connected() []string
	Attendance() []session.Attendee
	Metrics() *metrics.Collector
}

const prompt = "> "

// Console reads commands from one stream and writes events to another.
// It implements session.Observer.
type Console struct {
	srv Server

	readLine    func() (string, error)
	out         io.Writer // safe for concurrent use
	interactive bool

	mu      sync.Mutex
	partner string
}

// New returns a console that reads plain newline-terminated lines from
// in.  Use NewTerminal for an interactive TTY.
func New(srv Server, in io.Reader, out io.Writer) *Console {
	sc := bufio.NewScanner(in)
	return &Console{
		srv: srv,
		readLine: func() (string, error) {
			if sc.Scan() {
				return sc.Text(), nil
			}
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		},
		out: &lockedWriter{w: out},
	}
}

// NewTerminal returns a console with line editing and history on rw,
// which is normally a terminal in raw mode.  Events printed while the
// instructor is typing are drawn above the prompt.
func NewTerminal(srv Server, rw io.ReadWriter) *Console {
	t := term.NewTerminal(rw, prompt)
	return &Console{
		srv:         srv,
		readLine:    t.ReadLine,
		out:         t,
		interactive: true,
	}
}

// Interactive reports whether the console owns a line-editing terminal.
// Other output to that terminal must go through Writer so it is drawn
// above the prompt.
func (c *Console) Interactive() bool { return c.interactive }

// Writer returns the console's output stream.  It is safe for
// concurrent use.
func (c *Console) Writer() io.Writer { return c.out }

// Partner returns the current chat partner, or "".
func (c *Console) Partner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partner
}

func (c *Console) setPartner(id string) {
	c.mu.Lock()
	c.partner = id
	c.mu.Unlock()
}

// Run processes input until /quit, end of input, or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	c.printf("type /help for commands\n")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		for {
			line, err := c.readLine()
			if err != nil {
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("console: %w", err)
		case line := <-lines:
			if c.Execute(line) {
				return nil
			}
		}
	}
}

// Execute runs one input line and reports whether the console should
// exit.
func (c *Console) Execute(line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.sendToPartner(line)
		return false
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/to":
		id, msg, _ := strings.Cut(rest, " ")
		if id == "" {
			c.printf("usage: /to <id> [message]\n")
			return false
		}
		c.setPartner(id)
		c.printf("chatting with %s\n", id)
		if msg = strings.TrimSpace(msg); msg != "" {
			c.send(id, msg)
		}
	case "/all":
		if rest == "" {
			c.printf("usage: /all <message>\n")
			return false
		}
		c.broadcast(rest)
	case "/who":
		ids := c.srv.Connected()
		if len(ids) == 0 {
			c.printf("no students connected\n")
			return false
		}
		c.printf("%d connected: %s\n", len(ids), strings.Join(ids, ", "))
	case "/attendance":
		att := c.srv.Attendance()
		c.printf("%d attended\n", len(att))
		for _, a := range att {
			c.printf("  %s  %s\n", a.FirstSeen.Format(time.Kitchen), a.ID)
		}
	case "/stats":
		c.printf("%s\n", c.srv.Metrics().JSON())
	case "/help":
		c.printf("%s", help)
	case "/quit", "/exit":
		return true
	default:
		c.printf("unknown command %s (try /help)\n", cmd)
	}
	return false
}

func (c *Console) sendToPartner(text string) {
	id := c.Partner()
	if id == "" {
		c.printf("no chat partner; use /to <id> first\n")
		return
	}
	c.send(id, text)
}

func (c *Console) send(id, text string) {
	if err := c.srv.Send(id, text); err != nil {
		c.printf("! %v\n", err)
	}
}

func (c *Console) broadcast(text string) {
	errs := c.srv.Broadcast(text)
	if len(errs) == 0 {
		return
	}
	ids := make([]string, 0, len(errs))
	for id := range errs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c.printf("! %v\n", errs[id])
	}
}

// ── session.Observer ─────────────────────────────────────────────────

func (c *Console) OnAuthenticated(id string) {
	c.printf("+ %s joined\n", id)
}

// OnMessage prints an inbound message.  With no partner chosen yet the
// sender becomes the partner, so a reply can be typed straight away.
func (c *Console) OnMessage(id, text string) {
	c.mu.Lock()
	if c.partner == "" {
		c.partner = id
	}
	c.mu.Unlock()
	c.printf("[%s] %s\n", id, text)
}

func (c *Console) OnDisconnected(id string) {
	c.printf("- %s left\n", id)
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

const help = `commands:
  /to <id> [message]   pick the chat partner, optionally sending a message
  /all <message>       send to every connected student
  /who                 list connected students
  /attendance          list everyone who joined
  /stats               print session metrics
  /quit                end the session
any other line is sent to the current chat partner
`
