package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/mailcrawl/internal/config"
	"github.com/nao1215/mailcrawl/internal/log"
)

// NewRootCmd creates the root command for mailcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailcrawl",
		Short: "Breadth-first web crawler that collects email addresses",
		Long: `mailcrawl crawls a website breadth-first from a seed URL and collects
every email address it finds, until a page budget is reached or no
unvisited links remain.

Results can be written as plain text, JSON, or Markdown, and every crawl
is recorded in a local SQLite database so runs can be listed and compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "Directory of the crawl history database")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getDBDirFlag returns the history database directory.
func getDBDirFlag(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil || dir == "" {
		return config.XDGDataDir()
	}
	return dir
}

// setupLogger creates the redacting logger for the command, writing to its
// error output.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	return newLogger(cmd, cmd.ErrOrStderr())
}

// newLogger creates the redacting logger for the command, writing to w.
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	if asJSON, err := cmd.Flags().GetBool("log-json"); err == nil && asJSON {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}

// syncWriter serializes writes from concurrent crawls sharing one output.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
