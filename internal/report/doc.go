// Package report renders crawl results.
//
// Writers:
//   - TextWriter: the plain results file (emails, then visited URLs)
//   - JSONWriter and FullJSONWriter: JSON, optionally wrapped with version
//     and summary counts
//   - MarkdownWriter: GitHub Flavored Markdown with tables and alerts
//
// All of them implement Writer and can be combined with MultiWriter.
package report
