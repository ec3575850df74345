package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "mailcrawl" {
			t.Errorf("expected use 'mailcrawl', got %q", cmd.Use)
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		for _, name := range []string{"log-json", "db-dir"} {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		names := make(map[string]bool)
		for _, sub := range cmd.Commands() {
			names[sub.Name()] = true
		}
		for _, want := range []string{"crawl", "history", "compare", "init", "version"} {
			if !names[want] {
				t.Errorf("expected subcommand %q", want)
			}
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	t.Run("returns false when flag not set", func(t *testing.T) {
		t.Parallel()
		if getVerboseFlag(NewCrawlCmd()) {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		crawlCmd, _, err := root.Find([]string{"crawl"})
		if err != nil {
			t.Fatalf("failed to find crawl command: %v", err)
		}
		if !getVerboseFlag(crawlCmd) {
			t.Error("expected true from parent verbose flag")
		}
	})
}

func TestGetDBDirFlag(t *testing.T) {
	t.Parallel()

	t.Run("falls back to the XDG directory", func(t *testing.T) {
		t.Parallel()
		if dir := getDBDirFlag(NewHistoryCmd()); dir == "" {
			t.Error("expected non-empty default directory")
		}
	})

	t.Run("uses the persistent flag", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		root := NewRootCmd()
		root.SetArgs([]string{"--db-dir", dir, "history", "--list-seeds"})
		root.SetOut(&bytes.Buffer{})

		var got string
		historyCmd, _, err := root.Find([]string{"history"})
		if err != nil {
			t.Fatalf("failed to find history command: %v", err)
		}
		historyCmd.PreRun = func(cmd *cobra.Command, _ []string) {
			got = getDBDirFlag(cmd)
		}
		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != dir {
			t.Errorf("getDBDirFlag() = %q, want %q", got, dir)
		}
	})
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		wantJSON bool
	}{
		{name: "text logger", args: []string{"-v"}, wantJSON: false},
		{name: "json logger", args: []string{"-v", "--log-json"}, wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := NewRootCmd()
			var stderr bytes.Buffer
			root.SetErr(&stderr)
			if err := root.ParseFlags(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			setupLogger(root).Info("probe", "cookie", "sid=secret")

			output := stderr.String()
			if got := strings.HasPrefix(output, "{"); got != tt.wantJSON {
				t.Errorf("JSON output = %v, want %v: %s", got, tt.wantJSON, output)
			}
			if strings.Contains(output, "secret") {
				t.Errorf("expected cookie to be masked: %s", output)
			}
		})
	}
}
