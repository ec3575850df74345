// Package database stores crawl history in SQLite via modernc.org/sqlite,
// a pure Go driver, so the binary needs no cgo.
//
// Each saved crawl becomes one crawl_runs row with its visited URLs, emails
// and failures in child tables. The history command reads them back, and
// the crawl command uses KnownEmails to report which addresses are new
// since earlier runs of the same seed.
package database
