// Package fetcher retrieves pages over HTTP for the crawler.
//
// The crawler depends on the Fetcher interface only. HTTPFetcher is the
// production implementation; tests substitute in-memory fakes.
//
// A Fetch call has two kinds of outcome. A *Response is returned whenever the
// server answered, whatever the status code; deciding which statuses count as
// success is the caller's policy. A *TransportError is returned when no answer
// was obtained at all (timeout, DNS failure, refused connection, truncated
// body).
package fetcher
