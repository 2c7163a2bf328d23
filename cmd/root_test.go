package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	clerr "classlink/internal/errors"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	out := captureStdout(t)
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "classlink ") {
		t.Errorf("version output = %q", out.String())
	}
}

// TestExecute_Help verifies --help returns without error for both modes.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"join", "-h"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			out := captureStdout(t)
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), "--roster-file") {
				t.Errorf("usage should list flags:\n%s", out.String())
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"serve defaults", []string{"--dry-run"}, "serve on 0.0.0.0:8888"},
		{"default roster", []string{"serve", "--dry-run"}, "816117992, 816117993"},
		{"explicit roster", []string{"-p", "9000", "-r", "A, B", "--dry-run"}, "roster: A, B"},
		{"join", []string{"join", "--id", "816117992", "192.168.49.1", "--dry-run"}, "join 192.168.49.1:8888 as 816117992"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureStdout(t)
			if err := Execute(context.Background(), tt.args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q does not contain %q", out.String(), tt.want)
			}
		})
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"port", []string{"-p", "70000", "--dry-run"}, "port"},
		{"bind", []string{"-b", "not-an-ip", "--dry-run"}, "bind"},
		{"watch without file", []string{"--watch-roster", "--dry-run"}, "watch-roster"},
		{"join without id", []string{"join", "10.0.0.1", "--dry-run"}, "id"},
		{"join without server", []string{"join", "--id", "A", "--dry-run"}, "server"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureStdout(t)
			err := Execute(context.Background(), tt.args)
			var ce *clerr.ConfigError
			if !clerr.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	captureStdout(t)
	if err := Execute(context.Background(), []string{"--nonexistent-flag"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// TestExecute_Positional verifies stray arguments are rejected.
func TestExecute_Positional(t *testing.T) {
	captureStdout(t)
	if err := Execute(context.Background(), []string{"somehost"}); err == nil {
		t.Fatal("serve mode takes no positional arguments")
	}
	if err := Execute(context.Background(), []string{"join", "--id", "A", "h1", "h2"}); err == nil {
		t.Fatal("join takes a single server address")
	}
}

// TestExecute_EnvServer verifies join can take its server from the
// environment.
func TestExecute_EnvServer(t *testing.T) {
	t.Setenv("CLASSLINK_SERVER", "10.1.1.1:9999")
	t.Setenv("CLASSLINK_ID", "816117995")
	out := captureStdout(t)

	if err := Execute(context.Background(), []string{"join", "--dry-run"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "join 10.1.1.1:9999 as 816117995") {
		t.Errorf("output = %q", out.String())
	}
}
