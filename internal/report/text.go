package report

import (
	"io"
	"slices"
	"strings"

	"github.com/nao1215/mailcrawl/internal/model"
)

// TextWriter writes the plain results file: the sorted emails, a blank
// line, then the sorted visited URLs.
//
//	Emails found:
//	a@example.com
//
//	Visited URLs:
//	https://example.com/
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the result. Lists are sorted here as well, so a result
// that was never passed through Sort still renders deterministically.
func (w *TextWriter) Write(result *model.Result) (int, error) {
	emails := slices.Sorted(slices.Values(result.Emails))
	visited := slices.Sorted(slices.Values(result.Visited))

	var sb strings.Builder
	sb.WriteString("Emails found:\n")
	for _, e := range emails {
		sb.WriteString(e)
		sb.WriteByte('\n')
	}
	sb.WriteString("\nVisited URLs:\n")
	for _, u := range visited {
		sb.WriteString(u)
		sb.WriteByte('\n')
	}

	return io.WriteString(w.output, sb.String())
}
