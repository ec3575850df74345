package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/mailcrawl/internal/model"
)

// JSONWriter outputs results in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the result as a single JSON document.
func (w *JSONWriter) Write(result *model.Result) (int, error) {
	return w.writeJSON(result)
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a result with output metadata.
type JSONReport struct {
	// Version is the mailcrawl version that produced the result.
	Version string `json:"version"`

	// Summary holds derived counts for quick access.
	Summary Summary `json:"summary"`

	// Result is the full crawl result.
	Result *model.Result `json:"result"`
}

// Summary holds counts derived from a result.
type Summary struct {
	PagesProcessed    int     `json:"pages_processed"`
	VisitedURLs       int     `json:"visited_urls"`
	Emails            int     `json:"emails"`
	TransportFailures int     `json:"transport_failures"`
	StatusFailures    int     `json:"status_failures"`
	DurationSeconds   float64 `json:"duration_seconds"`
	Interrupted       bool    `json:"interrupted,omitempty"`
}

// NewSummary derives a Summary from result.
func NewSummary(result *model.Result) Summary {
	return Summary{
		PagesProcessed:    result.PagesProcessed,
		VisitedURLs:       len(result.Visited),
		Emails:            len(result.Emails),
		TransportFailures: result.FailureCount(model.FailureTransport),
		StatusFailures:    result.FailureCount(model.FailureStatus),
		DurationSeconds:   result.Duration().Seconds(),
		Interrupted:       result.Interrupted,
	}
}

// FullJSONWriter outputs results wrapped in a JSONReport.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for results with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the result wrapped with metadata.
func (w *FullJSONWriter) Write(result *model.Result) (int, error) {
	return w.writeJSON(&JSONReport{
		Version: w.version,
		Summary: NewSummary(result),
		Result:  result,
	})
}
