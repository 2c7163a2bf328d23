package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clerr "classlink/internal/errors"
	"classlink/internal/metrics"
	"classlink/internal/session"
)

type sent struct{ id, text string }

type fakeServer struct {
	mu        sync.Mutex
	sent      []sent
	broadcast []string
	connected []string
	failing   map[string]error
	metrics   *metrics.Collector
}

func (f *fakeServer) Send(id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing[id]; err != nil {
		return err
	}
	f.sent = append(f.sent, sent{id, text})
	return nil
}

func (f *fakeServer) Broadcast(text string) map[string]error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, text)
	errs := make(map[string]error)
	for id, err := range f.failing {
		errs[id] = err
	}
	return errs
}

func (f *fakeServer) Connected() []string { return f.connected }

func (f *fakeServer) Attendance() []session.Attendee {
	t := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	return []session.Attendee{{ID: "816117992", FirstSeen: t}}
}

func (f *fakeServer) Metrics() *metrics.Collector { return f.metrics }

func newTestConsole(srv Server) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return New(srv, strings.NewReader(""), &out), &out
}

func TestExecute_Commands(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		contains string
	}{
		{"who none", "/who", "no students connected"},
		{"help", "/help", "/to <id>"},
		{"unknown", "/dance", "unknown command /dance"},
		{"to usage", "/to", "usage: /to"},
		{"all usage", "/all   ", "usage: /all"},
		{"no partner", "hello", "no chat partner"},
		{"attendance", "/attendance", "816117992"},
		{"stats", "/stats", `"auth_succeeded": 0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestConsole(&fakeServer{metrics: metrics.New()})
			assert.False(t, c.Execute(tt.line))
			assert.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestExecute_ToSetsPartner(t *testing.T) {
	srv := &fakeServer{}
	c, out := newTestConsole(srv)

	c.Execute("/to 816117992 good morning")
	c.Execute("please open page 3")

	assert.Equal(t, "816117992", c.Partner())
	assert.Contains(t, out.String(), "chatting with 816117992")
	assert.Equal(t, []sent{
		{"816117992", "good morning"},
		{"816117992", "please open page 3"},
	}, srv.sent)
}

func TestExecute_SendErrorIsPrinted(t *testing.T) {
	srv := &fakeServer{failing: map[string]error{"A": clerr.NotConnected("A")}}
	c, out := newTestConsole(srv)

	c.Execute("/to A hi")

	assert.Contains(t, out.String(), "! send to A: not connected")
}

func TestExecute_All(t *testing.T) {
	srv := &fakeServer{failing: map[string]error{"B": errors.New("broken pipe")}}
	c, out := newTestConsole(srv)

	c.Execute("/all quiz starts now")

	assert.Equal(t, []string{"quiz starts now"}, srv.broadcast)
	assert.Contains(t, out.String(), "broken pipe")
}

func TestExecute_Who(t *testing.T) {
	c, out := newTestConsole(&fakeServer{connected: []string{"A", "B"}})
	c.Execute("/who")
	assert.Contains(t, out.String(), "2 connected: A, B")
}

func TestExecute_Quit(t *testing.T) {
	c, _ := newTestConsole(&fakeServer{})
	assert.True(t, c.Execute("/quit"))
	assert.True(t, c.Execute("  /exit  "))
}

func TestObserver_MessagePicksPartner(t *testing.T) {
	srv := &fakeServer{}
	c, out := newTestConsole(srv)

	c.OnAuthenticated("A")
	c.OnMessage("A", "is there homework?")
	c.OnMessage("B", "me too")
	c.OnDisconnected("B")
	c.Execute("yes, chapter 4")

	assert.Equal(t, "A", c.Partner())
	assert.Equal(t, []sent{{"A", "yes, chapter 4"}}, srv.sent)
	s := out.String()
	assert.Contains(t, s, "+ A joined")
	assert.Contains(t, s, "[A] is there homework?")
	assert.Contains(t, s, "- B left")
}

func TestRun_ReadsUntilQuit(t *testing.T) {
	srv := &fakeServer{}
	var out bytes.Buffer
	in := strings.NewReader("/to A\nfirst\n/quit\nnever sent\n")
	c := New(srv, in, &out)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []sent{{"A", "first"}}, srv.sent)
}

func TestRun_EOF(t *testing.T) {
	c := New(&fakeServer{}, strings.NewReader("/who\n"), io.Discard)
	assert.NoError(t, c.Run(context.Background()))
}

func TestRun_ContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := New(&fakeServer{}, pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// rw feeds scripted keystrokes to a term.Terminal and captures output.
type rw struct {
	in  io.Reader
	mu  sync.Mutex
	out bytes.Buffer
}

func (r *rw) Read(p []byte) (int, error) { return r.in.Read(p) }

func (r *rw) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Write(p)
}

func (r *rw) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.String()
}

func TestNewTerminal_LineEditing(t *testing.T) {
	srv := &fakeServer{}
	// Terminal input ends lines with carriage returns; 0x7f is backspace.
	term := &rw{in: strings.NewReader("/to A\rhellox\x7f\r/quit\r")}
	c := NewTerminal(srv, term)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []sent{{"A", "hello"}}, srv.sent)
	assert.Contains(t, term.String(), "chatting with A")
}

func TestConsole_Writer(t *testing.T) {
	plain := New(&fakeServer{}, strings.NewReader(""), io.Discard)
	assert.False(t, plain.Interactive())

	term := &rw{in: strings.NewReader("")}
	c := NewTerminal(&fakeServer{}, term)
	require.True(t, c.Interactive())

	_, err := io.WriteString(c.Writer(), "[INF] 816117992 authenticated\n")
	require.NoError(t, err)
	assert.Contains(t, term.String(), "[INF] 816117992 authenticated\r\n")
}
