package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/mailcrawl/internal/database"
	"github.com/nao1215/mailcrawl/internal/report"
)

// NewHistoryCmd creates the history command.
// This command lists crawl runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "List crawls recorded in the history database",
		Long: `History lists the crawl runs recorded by 'mailcrawl crawl'.

Without arguments every run is listed, newest first. With a seed URL only
the runs of that seed are listed.

Examples:
  # List every recorded run
  mailcrawl history

  # List the runs of one seed
  mailcrawl history https://example.com/

  # List every seed that has been crawled
  mailcrawl history --list-seeds

  # Print the full result of run 7 (emails, visited URLs, failures)
  mailcrawl history --run 7

  # Same, as JSON
  mailcrawl history --run 7 --json

  # Remove run 7 from the database
  mailcrawl history --delete 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-seeds", "L", false,
		"List all crawled seeds in the database")
	cmd.Flags().Int64P("run", "r", 0,
		"Show the stored result of the run with this ID")
	cmd.Flags().Int64("delete", 0,
		"Delete the run with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	listSeeds, err := flags.GetBool("list-seeds")
	if err != nil {
		return err
	}
	runID, err := flags.GetInt64("run")
	if err != nil {
		return err
	}
	deleteID, err := flags.GetInt64("delete")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	var seed string
	if len(args) > 0 {
		seed = args[0]
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
	out := cmd.OutOrStdout()

	switch {
	case listSeeds:
		return listCrawledSeeds(ctx, db, out, jsonOutput)
	case deleteID > 0:
		if err := db.DeleteRun(ctx, deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %d\n", deleteID)
		return nil
	case runID > 0:
		return showRun(ctx, db, out, runID, jsonOutput)
	default:
		return listRunHistory(ctx, db, out, seed, jsonOutput)
	}
}

// listCrawledSeeds lists every seed that has runs in the database.
func listCrawledSeeds(ctx context.Context, db *database.CrawlDB, out io.Writer, jsonOutput bool) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, seeds)
	}

	if len(seeds) == 0 {
		fmt.Fprintln(out, "No crawled seeds found in the database.")
		fmt.Fprintln(out, "\nUse 'mailcrawl crawl <seed-url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawled seeds (%d):\n\n", len(seeds))
	for _, s := range seeds {
		fmt.Fprintf(out, "  • %s\n", s)
	}
	fmt.Fprintln(out, "\nUse 'mailcrawl history <seed-url>' to see the runs of a seed.")

	return nil
}

// listRunHistory lists stored runs, newest first.
func listRunHistory(ctx context.Context, db *database.CrawlDB, out io.Writer, seed string, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, seed)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		if seed != "" {
			fmt.Fprintf(out, "No crawl history found for %s\n", seed)
		} else {
			fmt.Fprintln(out, "No crawl history found.")
		}
		fmt.Fprintln(out, "\nUse 'mailcrawl crawl <seed-url>' to crawl a site.")
		return nil
	}

	if seed != "" {
		fmt.Fprintf(out, "Crawl history for %s (%d runs):\n\n", seed, len(runs))
	} else {
		fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	}
	fmt.Fprintf(out, "  %-6s  %-19s  %-7s  %-7s  %-6s  %-8s  %s\n",
		"ID", "Date", "Pages", "Visited", "Emails", "Failures", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))

	for _, meta := range runs {
		pages := fmt.Sprintf("%d/%d", meta.PagesProcessed, meta.Budget)
		if meta.Interrupted {
			pages += "*"
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-7s  %-7d  %-6d  %-8d  %s\n",
			meta.ID,
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			pages,
			meta.VisitedCount,
			meta.EmailCount,
			meta.FailureCount,
			meta.Seed,
		)
	}

	fmt.Fprintln(out, "\n* interrupted before the crawl finished")
	fmt.Fprintln(out, "Use 'mailcrawl history --run <id>' to see the result of a run.")
	fmt.Fprintln(out, "Use 'mailcrawl compare <seed-url>' to compare the latest two runs of a seed.")

	return nil
}

// showRun prints a stored result with the report writers used by crawl.
func showRun(ctx context.Context, db *database.CrawlDB, out io.Writer, id int64, jsonOutput bool) error {
	result, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}

	var w report.Writer = report.NewTextWriter(out)
	if jsonOutput {
		w = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	}
	_, err = w.Write(result)
	return err
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
