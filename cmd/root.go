// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"classlink/config"
	"classlink/internal/core"
	"classlink/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X classlink/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout receives --help, --version and --dry-run output.  Tests
// replace it.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs the selected classlink mode.
//
//	classlink [serve] [options]
//	classlink join --id <id> <host[:port]>
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	if len(args) > 0 {
		switch args[0] {
		case string(config.ModeServe):
			args = args[1:]
		case string(config.ModeJoin):
			cfg.Mode = config.ModeJoin
			args = args[1:]
		}
	}

	fs := flag.NewFlagSet("classlink", flag.ContinueOnError)

	// ── session server ───────────────────────────────────────────
	fs.StringVarP(&cfg.BindAddress, "bind", "b", cfg.BindAddress, "Address to listen on (the ad hoc group owner address)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	var rosterSpec string
	fs.StringVarP(&rosterSpec, "roster", "r", "", "Comma separated student identifiers (default: built-in class list)")
	fs.StringVar(&cfg.RosterFile, "roster-file", cfg.RosterFile, "File of student identifiers, one or more per line")
	fs.BoolVar(&cfg.WatchRoster, "watch-roster", cfg.WatchRoster, "Reload --roster-file when it changes")
	fs.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "Time allowed to authenticate (0 disables)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Time allowed for one outbound message (0 disables)")
	fs.IntVar(&cfg.MaxFrameBytes, "max-frame", cfg.MaxFrameBytes, "Longest accepted line in bytes")
	fs.IntVar(&cfg.BindRetries, "bind-retries", cfg.BindRetries, "Extra bind attempts while the address is unavailable")
	fs.DurationVar(&cfg.GracePeriod, "grace", cfg.GracePeriod, "How long ending the session waits for connections to close")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Log events instead of running the interactive console")

	// ── student client ───────────────────────────────────────────
	fs.StringVar(&cfg.Identifier, "id", cfg.Identifier, "Student identifier (join mode)")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "Connect timeout (join mode)")
	fs.IntVar(&cfg.DialRetries, "dial-retries", cfg.DialRetries, "Extra connect attempts (join mode)")

	// ── output ───────────────────────────────────────────────────
	var verbose int
	var quiet bool
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&quiet, "quiet", "q", false, "Only print errors")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate the configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "classlink %s\n", version)
		return nil
	}

	cfg.Verbose += verbose
	if quiet {
		cfg.Verbose = 0
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── roster ───────────────────────────────────────────────────
	if rosterSpec != "" {
		cfg.Roster = config.ParseRoster(rosterSpec)
	}
	if cfg.Mode == config.ModeServe && len(cfg.Roster) == 0 && cfg.RosterFile == "" {
		cfg.Roster = config.DefaultRoster()
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DryRun {
		printPlan(cfg)
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Mode == config.ModeServe {
		if len(remaining) > 0 {
			return fmt.Errorf("unexpected argument %q (use --help for usage)", remaining[0])
		}
		return nil
	}

	switch len(remaining) {
	case 0: // CLASSLINK_SERVER
	case 1:
		cfg.ServerAddr = remaining[0]
	default:
		return fmt.Errorf("too many arguments for join mode")
	}
	return nil
}

func printPlan(cfg *config.Config) {
	switch cfg.Mode {
	case config.ModeJoin:
		addr, _ := config.ParseServerAddr(cfg.ServerAddr)
		fmt.Fprintf(stdout, "join %s as %s\n", addr, cfg.Identifier)
	default:
		fmt.Fprintf(stdout, "serve on %s\n", cfg.ListenAddr())
		if cfg.RosterFile != "" {
			fmt.Fprintf(stdout, "roster: %s (watch=%t)\n", cfg.RosterFile, cfg.WatchRoster)
		} else {
			fmt.Fprintf(stdout, "roster: %s\n", strings.Join(cfg.Roster, ", "))
		}
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stdout, `classlink %s

Encrypted classroom chat over an ad hoc local network.

Usage:
  classlink [serve] [options]                 Run the instructor's session
  classlink join --id <id> <host[:port]>      Join a session as a student

Options:
`, version)
	fs.SetOutput(stdout)
	fs.PrintDefaults()
	fmt.Fprintf(stdout, `
Examples:
  classlink                                   Serve on 0.0.0.0:8888 with the built-in roster
  classlink -b 192.168.49.1 --roster-file class.txt --watch-roster
  classlink join --id 816117992 192.168.49.1
`)
}
