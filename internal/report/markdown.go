package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/mailcrawl/internal/model"
)

// MarkdownWriter outputs results as GitHub Flavored Markdown, built with
// nao1215/markdown: a summary table, an alert, a mermaid pie chart of page
// outcomes, and tables of emails and failures.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeAlert(md, result)
	w.writeOutcomeChart(md, result)
	w.writeEmails(md, result)
	w.writeVisited(md, result)
	w.writeFailures(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the crawl summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.Result) {
	md.H1("mailcrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + result.Seed + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", result.Duration().Round(time.Millisecond).String()},
			{"Page Budget", strconv.Itoa(result.Budget)},
			{"Pages Processed", strconv.Itoa(result.PagesProcessed)},
			{"Visited URLs", strconv.Itoa(len(result.Visited))},
			{"Emails Found", strconv.Itoa(len(result.Emails))},
			{"Status", statusText(result)},
		},
	})
	md.PlainText("")
}

func statusText(result *model.Result) string {
	switch {
	case result.Interrupted:
		return "⚠️ Interrupted (partial results)"
	case result.PagesProcessed >= result.Budget:
		return "✅ Budget reached"
	default:
		return "✅ Frontier exhausted"
	}
}

// writeAlert writes one alert summarising the outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.Result) {
	failures := len(result.Failures)
	switch {
	case result.Interrupted:
		md.Warningf("The crawl was interrupted after %d page(s). Results are partial.", result.PagesProcessed)
	case result.PagesProcessed == 0:
		md.Cautionf("No page could be processed. %d URL(s) failed.", failures)
	case failures > 0:
		md.Importantf("%d URL(s) failed and were skipped.", failures)
	case len(result.Emails) == 0:
		md.Note("No email addresses were found.")
	default:
		md.Tip("Every visited URL was processed successfully.")
	}
	md.PlainText("")
}

// writeOutcomeChart writes a mermaid pie chart of page outcomes.
func (w *MarkdownWriter) writeOutcomeChart(md *markdown.Markdown, result *model.Result) {
	if len(result.Visited) == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)

	if result.PagesProcessed > 0 {
		chart.LabelAndIntValue("Processed", uint64(result.PagesProcessed))
	}
	if n := result.FailureCount(model.FailureStatus); n > 0 {
		chart.LabelAndIntValue("Unsuccessful status", uint64(n))
	}
	if n := result.FailureCount(model.FailureTransport); n > 0 {
		chart.LabelAndIntValue("Transport error", uint64(n))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeEmails writes the email table with the page each address was first seen on.
func (w *MarkdownWriter) writeEmails(md *markdown.Markdown, result *model.Result) {
	md.H2("Emails")
	md.PlainText("")

	if len(result.Emails) == 0 {
		md.PlainText("No email addresses found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Emails))
	for i, email := range result.Emails {
		source := result.EmailSources[email]
		if source == "" {
			source = "-"
		} else {
			source = "`" + source + "`"
		}
		rows[i] = []string{email, source}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Email", "First Seen On"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeVisited writes the visited URLs, folded when the list is long.
func (w *MarkdownWriter) writeVisited(md *markdown.Markdown, result *model.Result) {
	md.H2("Visited URLs")
	md.PlainText("")

	if len(result.Visited) <= foldThreshold {
		md.BulletList(result.Visited...)
		md.PlainText("")
		return
	}

	var sb strings.Builder
	for _, u := range result.Visited {
		sb.WriteString("- " + u + "\n")
	}
	md.Details(strconv.Itoa(len(result.Visited))+" URLs", sb.String())
	md.PlainText("")
}

// foldThreshold is the list length above which URLs go into a details block.
const foldThreshold = 20

// writeFailures writes a table of failed URLs.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.Result) {
	if len(result.Failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, len(result.Failures))
	for i, f := range result.Failures {
		status := "-"
		if f.StatusCode != 0 {
			status = strconv.Itoa(f.StatusCode)
		}
		rows[i] = []string{
			"`" + f.URL + "`",
			string(f.Kind),
			status,
			truncateString(f.Message, 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Status", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [mailcrawl](https://github.com/nao1215/mailcrawl)*")
}

// truncateString truncates a string to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
