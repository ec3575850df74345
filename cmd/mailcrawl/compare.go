package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/mailcrawl/internal/database"
	"github.com/nao1215/mailcrawl/internal/model"
)

// NewCompareCmd creates the compare command.
// This command compares crawl results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <seed-url>",
		Short: "Compare the latest crawl of a seed with an earlier one",
		Long: `Compare displays differences between the latest and a previous crawl
of the same seed.

The comparison shows:
- Email addresses that appeared since the previous crawl
- Email addresses that are no longer found
- Changes in the number of visited URLs and failed pages

The comparison requires at least two crawls of the seed in the database.
Use 'mailcrawl crawl' to crawl a site and record the result.

Examples:
  # Compare the latest two crawls of a seed
  mailcrawl compare https://example.com/

  # Compare with a specific run by ID (see 'mailcrawl history')
  mailcrawl compare --with-run-id 5 https://example.com/

  # Compare with the first crawl on or after a date
  mailcrawl compare --since 2025-01-01 https://example.com/

  # Output comparison in JSON format
  mailcrawl compare --json https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use 'mailcrawl history' to see IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run on or after this date (format: YYYY-MM-DD)")

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	withRunID, err := flags.GetInt64("with-run-id")
	if err != nil {
		return err
	}
	sinceDate, err := flags.GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	var since time.Time
	if sinceDate != "" {
		// Validate before opening the database.
		if since, err = time.ParseInLocation("2006-01-02", sinceDate, time.Local); err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}

	db, err := database.Open(getDBDirFlag(cmd), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	comparison, err := runComparison(ctx, db, args[0], withRunID, since)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return writeJSON(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// runComparison picks the two runs to compare and loads them.
func runComparison(ctx context.Context, db *database.CrawlDB, seed string, withRunID int64, since time.Time) (*ComparisonResult, error) {
	runs, err := db.ListRuns(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(runs) == 0 {
		return nil, fmt.Errorf("no crawl history found for %s", seed)
	}

	if len(runs) < 2 && withRunID == 0 && since.IsZero() {
		return nil, fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(runs))
	}

	// Runs are newest first; the latest is always the current one.
	currentID := runs[0].ID
	var previousID int64

	switch {
	case withRunID > 0:
		previousID = withRunID
	case !since.IsZero():
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].StartedAt.Before(since) {
				previousID = runs[i].ID
				break
			}
		}
		if previousID == 0 {
			return nil, fmt.Errorf("no crawls found since %s", since.Format("2006-01-02"))
		}
	default:
		previousID = runs[1].ID
	}

	if previousID == currentID {
		return nil, errors.New("the selected run is the latest one; at least 2 crawls are required for comparison")
	}

	current, err := db.GetRun(ctx, currentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", currentID, err)
	}
	previous, err := db.GetRun(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", previousID, err)
	}
	if previous.Seed != seed {
		return nil, fmt.Errorf("run %d belongs to %s, not %s", previousID, previous.Seed, seed)
	}

	return compareResults(previous, current), nil
}

// ComparisonResult holds the result of comparing two crawl runs.
type ComparisonResult struct {
	// Seed is the seed URL both runs started from.
	Seed string `json:"seed"`

	// PreviousRun contains metadata about the previous run.
	PreviousRun RunSummary `json:"previous_run"`

	// CurrentRun contains metadata about the current run.
	CurrentRun RunSummary `json:"current_run"`

	// NewEmails were found by the current run only.
	NewEmails []string `json:"new_emails,omitempty"`

	// GoneEmails were found by the previous run only.
	GoneEmails []string `json:"gone_emails,omitempty"`

	// UnchangedCount is the number of emails found by both runs.
	UnchangedCount int `json:"unchanged_count"`

	// NewURLs were visited by the current run only.
	NewURLs int `json:"new_urls"`

	// GoneURLs were visited by the previous run only.
	GoneURLs int `json:"gone_urls"`
}

// RunSummary contains metadata about a run for comparison display.
type RunSummary struct {
	ID             int64     `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	PagesProcessed int       `json:"pages_processed"`
	VisitedURLs    int       `json:"visited_urls"`
	Emails         int       `json:"emails"`
	Failures       int       `json:"failures"`
	Interrupted    bool      `json:"interrupted,omitempty"`
}

func summarizeRun(r *model.Result) RunSummary {
	return RunSummary{
		ID:             r.ID,
		StartedAt:      r.StartedAt,
		PagesProcessed: r.PagesProcessed,
		VisitedURLs:    len(r.Visited),
		Emails:         len(r.Emails),
		Failures:       len(r.Failures),
		Interrupted:    r.Interrupted,
	}
}

// compareResults compares two runs. Both results must have sorted lists.
func compareResults(previous, current *model.Result) *ComparisonResult {
	result := &ComparisonResult{
		Seed:        current.Seed,
		PreviousRun: summarizeRun(previous),
		CurrentRun:  summarizeRun(current),
	}

	var both int
	result.NewEmails, result.GoneEmails, both = diffSorted(previous.Emails, current.Emails)
	result.UnchangedCount = both

	newURLs, goneURLs, _ := diffSorted(previous.Visited, current.Visited)
	result.NewURLs = len(newURLs)
	result.GoneURLs = len(goneURLs)

	return result
}

// diffSorted merges two sorted lists and returns the entries only in b,
// the entries only in a, and the number of entries in both.
func diffSorted(a, b []string) (added, removed []string, common int) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			common++
			i++
			j++
		case a[i] < b[j]:
			removed = append(removed, a[i])
			i++
		default:
			added = append(added, b[j])
			j++
		}
	}
	removed = append(removed, a[i:]...)
	added = append(added, b[j:]...)
	return added, removed, common
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Crawl Comparison: " + result.Seed)
	md.PlainText("")

	prev, cur := result.PreviousRun, result.CurrentRun
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run ID", strconv.FormatInt(prev.ID, 10), strconv.FormatInt(cur.ID, 10), "-"},
			{"Date", prev.StartedAt.Local().Format("2006-01-02 15:04"), cur.StartedAt.Local().Format("2006-01-02 15:04"), "-"},
			{"Pages Processed", strconv.Itoa(prev.PagesProcessed), strconv.Itoa(cur.PagesProcessed), formatDelta(cur.PagesProcessed - prev.PagesProcessed)},
			{"Visited URLs", strconv.Itoa(prev.VisitedURLs), strconv.Itoa(cur.VisitedURLs), formatDelta(cur.VisitedURLs - prev.VisitedURLs)},
			{"Failures", strconv.Itoa(prev.Failures), strconv.Itoa(cur.Failures), formatDelta(cur.Failures - prev.Failures)},
			{"**Emails**", "**" + strconv.Itoa(prev.Emails) + "**", "**" + strconv.Itoa(cur.Emails) + "**", "**" + formatDelta(cur.Emails-prev.Emails) + "**"},
		},
	})
	md.PlainText("")

	if len(result.NewEmails) > 0 {
		md.H2(fmt.Sprintf("New Emails (%d)", len(result.NewEmails)))
		md.PlainText("")
		md.BulletList(result.NewEmails...)
		md.PlainText("")
	}

	if len(result.GoneEmails) > 0 {
		md.H2(fmt.Sprintf("Gone Emails (%d)", len(result.GoneEmails)))
		md.PlainText("")
		gone := make([]string, len(result.GoneEmails))
		for i, e := range result.GoneEmails {
			gone[i] = "~~" + e + "~~"
		}
		md.BulletList(gone...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d emails unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	prev, cur := result.PreviousRun, result.CurrentRun

	fmt.Fprintf(out, "Crawl Comparison: %s\n", result.Seed)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious run: #%d %s\n", prev.ID, prev.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current run:  #%d %s\n", cur.ID, cur.StartedAt.Local().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-16s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 52))
	row := func(name string, p, c int) {
		fmt.Fprintf(out, "  %-16s  %-10d  %-10d  %-10s\n", name, p, c, formatDelta(c-p))
	}
	row("Pages processed", prev.PagesProcessed, cur.PagesProcessed)
	row("Visited URLs", prev.VisitedURLs, cur.VisitedURLs)
	row("Failures", prev.Failures, cur.Failures)
	row("Emails", prev.Emails, cur.Emails)

	fmt.Fprintf(out, "\nURLs: %d newly visited, %d no longer visited\n", result.NewURLs, result.GoneURLs)

	if len(result.NewEmails) > 0 {
		fmt.Fprintf(out, "\nNew Emails (%d):\n", len(result.NewEmails))
		for _, e := range result.NewEmails {
			fmt.Fprintf(out, "  [+] %s\n", e)
		}
	}

	if len(result.GoneEmails) > 0 {
		fmt.Fprintf(out, "\nGone Emails (%d):\n", len(result.GoneEmails))
		for _, e := range result.GoneEmails {
			fmt.Fprintf(out, "  [-] %s\n", e)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d emails\n", result.UnchangedCount)
	}

	return nil
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
