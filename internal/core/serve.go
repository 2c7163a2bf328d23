package core

import (
	"context"
	"io"
	"net"

	"classlink/internal/console"
	"classlink/internal/roster"
	"classlink/internal/session"
	"classlink/util"
)

// ServeMode runs the instructor's session server for one class
// meeting, with the interactive console attached unless Headless.
type ServeMode struct {
	Options     session.Options
	Roster      []string
	RosterFile  string
	WatchRoster bool
	Headless    bool
	Logger      *util.Logger

	// Stdin/Stdout override the console's terminal.  Tests set them
	// for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
	// Terminal, if set, runs the line-editing console on it instead of
	// the process's terminal.
	Terminal io.ReadWriter

	// OnListening, if set, is called with the session once it is bound.
	OnListening func(*session.Session)
}

// Run binds the session, serves until the console quits or ctx is
// cancelled, then ends the session and logs attendance.
func (m *ServeMode) Run(ctx context.Context) error {
	r, stopWatch, err := m.loadRoster(ctx)
	if err != nil {
		return err
	}
	defer stopWatch()

	// The console observes the session it drives, so the observer is
	// wired in after both exist and before Start.
	fwd := &forwarder{Observer: logObserver{m.Logger}}
	sess, err := session.New(m.Options, r, fwd)
	if err != nil {
		return err
	}
	defer m.summarise(sess)
	defer sess.Stop()

	var con *console.Console
	if !m.Headless {
		var restore func()
		con, restore, err = m.console(sess)
		if err != nil {
			return err
		}
		defer restore()
		if con.Interactive() {
			prev := m.Logger.Output()
			m.Logger.SetOutput(con.Writer())
			defer m.Logger.SetOutput(prev)
		}
		fwd.Observer = con
	}

	sess.Start(ctx)
	m.Logger.Info("class session open on %s (%d students on roster)", sess.Addr(), r.Len())
	m.announce(sess)
	if m.OnListening != nil {
		m.OnListening(sess)
	}

	if con == nil {
		<-ctx.Done()
		return nil
	}
	return con.Run(ctx)
}

// announce lists the concrete addresses students can dial when the
// session binds every interface.
func (m *ServeMode) announce(sess *session.Session) {
	if !util.IsWildcard(m.Options.BindAddress) {
		return
	}
	ips, err := util.LocalIPv4s()
	if err != nil {
		m.Logger.Debug("%v", err)
		return
	}
	tcp, ok := sess.Addr().(*net.TCPAddr)
	if !ok {
		return
	}
	port := tcp.Port
	for _, ip := range ips {
		m.Logger.Verbose("  reachable at %s", util.FormatAddr(ip, port))
	}
}

func (m *ServeMode) loadRoster(ctx context.Context) (*roster.Roster, func(), error) {
	r := roster.New(m.Roster...)
	if m.RosterFile == "" {
		return r, func() {}, nil
	}

	if !m.WatchRoster {
		ids, err := roster.LoadFile(m.RosterFile)
		if err != nil {
			return nil, nil, err
		}
		r.Replace(ids)
		return r, func() {}, nil
	}

	w, err := roster.NewWatcher(r, m.RosterFile, m.Logger)
	if err != nil {
		return nil, nil, err
	}
	w.Start(ctx)
	m.Logger.Verbose("watching %s for roster changes", m.RosterFile)
	return r, func() { _ = w.Close() }, nil
}

func (m *ServeMode) console(sess *session.Session) (*console.Console, func(), error) {
	if m.Terminal != nil {
		return console.NewTerminal(sess, m.Terminal), func() {}, nil
	}
	if m.Stdin != nil && m.Stdout != nil {
		return console.New(sess, m.Stdin, m.Stdout), func() {}, nil
	}
	return console.Stdio(sess)
}

func (m *ServeMode) summarise(sess *session.Session) {
	att := sess.Attendance()
	m.Logger.Info("session closed: %d students attended", len(att))
	for _, a := range att {
		m.Logger.Verbose("  %s joined at %s", a.ID, a.FirstSeen.Format("15:04:05"))
	}
	m.Logger.Debug("metrics: %s", sess.Metrics().JSON())
}

// forwarder lets an observer be chosen after the session is built.
// Observer must not change once the session has started.
type forwarder struct {
	session.Observer
}

// logObserver reports session events through the logger.
type logObserver struct {
	log *util.Logger
}

func (o logObserver) OnAuthenticated(id string) { o.log.Info("%s joined", id) }

func (o logObserver) OnMessage(id, text string) { o.log.Info("[%s] %s", id, text) }

func (o logObserver) OnDisconnected(id string) { o.log.Info("%s left", id) }
