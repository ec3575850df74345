// Package model defines the data structures shared by the crawler, the
// report writers and the history database.
//
//   - Result: everything one crawl hands back to its caller
//   - Failure: one URL that produced no links or emails, and why
//
// Models live in their own package so that crawler, report and database can
// all use them without importing each other.
//
// The models are serializable to JSON for report output.
package model
