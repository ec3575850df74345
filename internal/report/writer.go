package report

import (
	"io"

	"github.com/nao1215/mailcrawl/internal/model"
)

// Writer renders a crawl result to some destination.
type Writer interface {
	// Write outputs the result and returns the number of bytes written.
	Write(result *model.Result) (int, error)
}

// MultiWriter writes one result to several Writers, e.g. the terminal and
// a file. Unlike io.MultiWriter it fans out results, not bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to every Writer in order and stops on the first
// error. The returned count is the total across writers.
func (m *MultiWriter) Write(result *model.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
