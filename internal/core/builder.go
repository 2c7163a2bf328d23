package core

import (
	"fmt"
	"time"

	"classlink/config"
	"classlink/internal/metrics"
	"classlink/internal/session"
	"classlink/internal/student"
	"classlink/internal/transport"
	"classlink/util"
)

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	switch cfg.Mode {
	case config.ModeJoin:
		return buildJoin(cfg, logger)
	case config.ModeServe, "":
		return buildServe(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger) Mode {
	return &ServeMode{
		Options: session.Options{
			BindAddress:      cfg.BindAddress,
			Port:             cfg.Port,
			HandshakeTimeout: cfg.HandshakeTimeout,
			WriteTimeout:     cfg.WriteTimeout,
			MaxFrameBytes:    cfg.MaxFrameBytes,
			BindRetries:      cfg.BindRetries,
			BindBackoff:      config.DefaultBindBackoff,
			MaxBindBackoff:   config.DefaultMaxBindBackoff,
			GracePeriod:      cfg.GracePeriod,
			Logger:           logger,
			Metrics:          metrics.New(),
		},
		Roster:      cfg.Roster,
		RosterFile:  cfg.RosterFile,
		WatchRoster: cfg.WatchRoster,
		Headless:    cfg.Headless,
		Logger:      logger,
	}
}

func buildJoin(cfg *config.Config, logger *util.Logger) (Mode, error) {
	addr, err := config.ParseServerAddr(cfg.ServerAddr)
	if err != nil {
		return nil, err
	}

	return &JoinMode{
		Dialer: &transport.TCPDialer{
			Timeout: cfg.DialTimeout,
			Retries: cfg.DialRetries,
			OnRetry: func(attempt int, err error, wait time.Duration) {
				logger.Warn("connect to %s failed (attempt %d): %v; retrying in %s",
					addr, attempt, err, wait.Round(time.Millisecond))
			},
		},
		Address: addr,
		Options: student.Options{
			Identifier:       cfg.Identifier,
			HandshakeTimeout: cfg.HandshakeTimeout,
			MaxFrameBytes:    cfg.MaxFrameBytes,
			Logger:           logger,
		},
		Logger: logger,
	}, nil
}
