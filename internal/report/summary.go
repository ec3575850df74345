package report

import (
	"fmt"
	"io"

	"github.com/nao1215/mailcrawl/internal/model"
)

// SummaryWriter prints a one-line digest of a result. It goes to the
// terminal next to a full report that is written to a file.
type SummaryWriter struct {
	baseWriter

	// destination names where the full report went.
	destination string
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer
// and mentions destination as the location of the full report.
func NewSummaryWriter(output io.Writer, destination string) *SummaryWriter {
	return &SummaryWriter{
		baseWriter:  newBaseWriter(output),
		destination: destination,
	}
}

// Write outputs the digest line.
func (w *SummaryWriter) Write(result *model.Result) (int, error) {
	suffix := ""
	if result.Interrupted {
		suffix = " (interrupted)"
	}
	return fmt.Fprintf(w.output, "Report for %s written to %s: %d page(s), %d URL(s) visited, %d email(s), %d failure(s)%s\n",
		result.Seed,
		w.destination,
		result.PagesProcessed,
		len(result.Visited),
		len(result.Emails),
		len(result.Failures),
		suffix,
	)
}
