package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/mailcrawl/internal/batch"
	"github.com/nao1215/mailcrawl/internal/config"
	"github.com/nao1215/mailcrawl/internal/crawler"
	"github.com/nao1215/mailcrawl/internal/database"
	"github.com/nao1215/mailcrawl/internal/fetcher"
	"github.com/nao1215/mailcrawl/internal/model"
	"github.com/nao1215/mailcrawl/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <seed-url>...",
		Short: "Crawl websites and collect email addresses",
		Long: `Crawl visits pages breadth-first starting at each seed URL and collects
every email address found in their content.

Each seed is crawled independently. A crawl stops when --max-pages pages
have been processed successfully or when no unvisited links remain. Pages
that fail (network errors, non-2xx responses) are recorded and skipped;
they do not count against the budget.

Examples:
  # Crawl up to 50 pages (the default)
  mailcrawl crawl https://example.com/

  # Larger budget, four concurrent fetches, stay on the seed's host
  mailcrawl crawl -p 500 -w 4 --same-host https://example.com/

  # Crawl two sites, both at the same time
  mailcrawl crawl -b 2 https://example.com/ https://example.org/

  # Write a Markdown report to a file
  mailcrawl crawl -m -o reports/example.md https://example.com/

  # Do not record this crawl in the history database
  mailcrawl crawl --no-db https://example.com/

Press Ctrl+C to stop early; the pages processed so far are still reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to process successfully")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of pages fetched concurrently (1 keeps strict breadth-first order)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")
	cmd.Flags().Bool("same-host", false,
		"Only follow links on the seed's host")
	cmd.Flags().Bool("no-redirects", false,
		"Do not follow HTTP redirects; a 3xx response counts as a failed page")
	cmd.Flags().Bool("compact-visited", false,
		"Deduplicate visited URLs by 64-bit hash instead of the full string (the report still lists every URL)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .mailcrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-db", false,
		"Do not record the crawl in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Concurrent crawls share stderr for logs and progress lines.
	stderr := &syncWriter{w: cmd.ErrOrStderr()}
	logger := newLogger(cmd, stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.Flags().Changed("max-pages"), logger, cmd.OutOrStdout(), stderr)
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.SameHost, err = flags.GetBool("same-host"); err != nil {
		return nil, err
	}
	noRedirects, err := flags.GetBool("no-redirects")
	if err != nil {
		return nil, err
	}
	cfg.FollowRedirects = !noRedirects
	if cfg.CompactVisited, err = flags.GetBool("compact-visited"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = getDBDirFlag(cmd)
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicit --config that does not exist is an error; a missing
	// default file is not.
	if cfg.SiteConfigs, err = config.Load(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	cfg.Seeds = args
	return cfg, nil
}

// seedConfig returns a copy of cfg with the site settings for seed's host
// applied, together with those settings.
func seedConfig(cfg *config.Config, seed string, maxPagesExplicit bool) (*config.Config, config.SiteConfig) {
	site := cfg.SiteConfigs.GetSiteConfig(seedHost(seed))
	seedCfg := *cfg
	seedCfg.ApplySite(site, maxPagesExplicit)
	return &seedCfg, site
}

// seedHost returns the host part of seed, or "" if seed does not parse.
func seedHost(seed string) string {
	u, err := url.Parse(seed)
	if err != nil {
		return ""
	}
	return u.Host
}

// runCrawl crawls every seed, writes one report per seed, and records the
// results in the history database.
func runCrawl(ctx context.Context, cfg *config.Config, maxPagesExplicit bool, logger *slog.Logger, stdout, stderr io.Writer) error {
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cfg, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output)
	if cfg.ReportFile != "" {
		writer = report.NewMultiWriter(writer, report.NewSummaryWriter(stderr, cfg.ReportFile))
	}

	crawlSeed := func(ctx context.Context, seed string) (*model.Result, error) {
		seedCfg, site := seedConfig(cfg, seed, maxPagesExplicit)
		logger.Debug("site configuration",
			"host", seedHost(seed),
			"maxPages", seedCfg.MaxPages,
			"cookie", site.Cookie,
			"headers", site.Headers,
			"ignorePatterns", site.IgnorePatterns,
			"followPatterns", site.FollowPatterns,
		)

		engine, err := newEngine(seedCfg, site, logger, stderr)
		if err != nil {
			return nil, err
		}
		return engine.Run(ctx, seed, seedCfg.MaxPages)
	}

	multi := len(cfg.Seeds) > 1
	textReport := !cfg.JSONReport && !cfg.MarkdownReport
	var (
		errs    []error
		written int
	)

	processor := batch.NewProcessor(crawlSeed,
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
	)
	batchErr := processor.ProcessWithCallback(ctx, cfg.Seeds, func(item batch.Item) {
		if item.Result == nil {
			if !errors.Is(item.Err, context.Canceled) {
				errs = append(errs, fmt.Errorf("%s: %w", item.Seed, item.Err))
			}
			return
		}

		if multi {
			fmt.Fprintf(stderr, "[%d/%d] Crawl finished: %s (%d page(s), %d email(s))\n",
				item.Index+1, len(cfg.Seeds), item.Result.Seed, item.Result.PagesProcessed, len(item.Result.Emails))
			if textReport {
				if written > 0 {
					fmt.Fprintln(output)
				}
				fmt.Fprintf(output, "Seed: %s\n", item.Result.Seed)
			}
		}
		if _, err := writer.Write(item.Result); err != nil {
			errs = append(errs, fmt.Errorf("failed to write report: %w", err))
		}
		written++

		if db != nil {
			// Saving must not be skipped because the crawl context was cancelled.
			fresh, seen, err := saveResult(context.WithoutCancel(ctx), db, item.Result, logger)
			if err != nil {
				logger.Error("failed to save crawl result", "seed", item.Result.Seed, "error", err)
			} else if seen {
				printNewEmails(stderr, fresh, item.Result.Seed)
			}
		}

		if item.Err != nil && !errors.Is(item.Err, context.Canceled) {
			errs = append(errs, fmt.Errorf("%s: %w", item.Seed, item.Err))
		}
	})

	if batchErr != nil {
		errs = append(errs, fmt.Errorf("crawl interrupted: %w", batchErr))
	}
	return errors.Join(errs...)
}

// newEngine wires the fetcher, link filter and engine for one crawl.
func newEngine(cfg *config.Config, site config.SiteConfig, logger *slog.Logger, stderr io.Writer) (*crawler.Engine, error) {
	f := fetcher.NewHTTPFetcher(
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithHeaders(site.Headers),
		fetcher.WithCookie(site.Cookie),
		fetcher.WithFollowRedirects(cfg.FollowRedirects),
	)

	var filter *crawler.LinkFilter
	if len(site.IgnorePatterns) > 0 || len(site.FollowPatterns) > 0 {
		var err error
		filter, err = crawler.NewLinkFilter(site.IgnorePatterns, site.FollowPatterns)
		if err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}

	opts := []crawler.Option{
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithLogger(logger),
		crawler.WithLinkFilter(filter),
		crawler.WithSameHost(cfg.SameHost),
		crawler.WithCompactVisited(cfg.CompactVisited),
	}
	if cfg.Verbose {
		opts = append(opts, crawler.WithProgress(progressPrinter(stderr, cfg.MaxPages)))
	}

	return crawler.NewEngine(f, crawler.NewHTMLParser(), opts...), nil
}

// progressPrinter returns a callback that prints one line per finished page.
func progressPrinter(w io.Writer, budget int) func(crawler.PageEvent) {
	return func(ev crawler.PageEvent) {
		if ev.Failure != nil {
			fmt.Fprintf(w, "[%d/%d] FAIL %s (%s)\n", ev.Processed, budget, ev.URL, ev.Failure.Message)
			return
		}
		fmt.Fprintf(w, "[%d/%d] %s: %d link(s), %d new email(s), %d pending\n",
			ev.Processed, budget, ev.URL, ev.LinksQueued, ev.EmailsNew, ev.Pending)
	}
}

// openOutput returns the report destination: the report file, created
// with its parent directories, or stdout when no file is set.
func openOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list harvested addresses; keep the file private to the owner.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // best effort on a write-only file
}

// newReportWriter selects the writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewTextWriter(output)
	}
}

// saveResult stores result and returns the emails that no earlier run of
// the same seed had found. seen reports whether such an earlier run exists.
func saveResult(ctx context.Context, db *database.CrawlDB, result *model.Result, logger *slog.Logger) (fresh []string, seen bool, err error) {
	previous, err := db.ListRuns(ctx, result.Seed)
	if err != nil {
		return nil, false, err
	}
	known, err := db.KnownEmails(ctx, result.Seed)
	if err != nil {
		return nil, false, err
	}

	id, err := db.SaveResult(ctx, result)
	if err != nil {
		return nil, false, err
	}
	logger.Info("crawl result saved", "seed", result.Seed, "run", id)

	for _, e := range result.Emails {
		if _, found := slices.BinarySearch(known, e); !found {
			fresh = append(fresh, e)
		}
	}
	return fresh, len(previous) > 0, nil
}

// printNewEmails reports addresses not seen in earlier runs of seed.
func printNewEmails(w io.Writer, fresh []string, seed string) {
	if len(fresh) == 0 {
		fmt.Fprintf(w, "No new emails since the previous crawl of %s\n", seed)
		return
	}
	fmt.Fprintf(w, "%d new email(s) since the previous crawl of %s:\n", len(fresh), seed)
	for _, e := range fresh {
		fmt.Fprintf(w, "  + %s\n", e)
	}
}
