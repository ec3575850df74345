package model

import (
	"slices"
	"time"
)

// FailureKind classifies why a page produced no links or emails.
type FailureKind string

const (
	// FailureTransport means the page could not be retrieved at all.
	FailureTransport FailureKind = "transport"

	// FailureStatus means the server answered with a status the crawler does
	// not accept as success.
	FailureStatus FailureKind = "status"
)

// Failure records one per-URL failure. Failures never abort a crawl.
type Failure struct {
	// URL is the frontier entry that failed.
	URL string `json:"url"`

	// Kind is the failure class.
	Kind FailureKind `json:"kind"`

	// StatusCode is set for FailureStatus and zero otherwise.
	StatusCode int `json:"status_code,omitempty"`

	// Message is a human readable description of the failure.
	Message string `json:"message"`
}

// Result is what a crawl hands back to its caller.
type Result struct {
	// ID is assigned by the database when the result is saved. Zero otherwise.
	ID int64 `json:"id,omitempty"`

	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// Budget is the maximum number of successfully processed pages.
	Budget int `json:"budget"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// PagesProcessed counts pages fetched with a success status and
	// extracted. It never exceeds Budget.
	PagesProcessed int `json:"pages_processed"`

	// Visited lists every URL dequeued for fetching, including failures,
	// sorted lexically.
	Visited []string `json:"visited"`

	// Emails lists the distinct email-like strings found, sorted lexically.
	Emails []string `json:"emails"`

	// EmailSources maps each email to the first page it was found on.
	EmailSources map[string]string `json:"email_sources,omitempty"`

	// Failures lists per-URL failures in the order they occurred.
	Failures []Failure `json:"failures,omitempty"`

	// Interrupted is true when the crawl was cancelled before it finished.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewResult returns an empty Result for seed and budget.
func NewResult(seed string, budget int) *Result {
	return &Result{
		Seed:         seed,
		Budget:       budget,
		StartedAt:    time.Now(),
		Visited:      make([]string, 0),
		Emails:       make([]string, 0),
		EmailSources: make(map[string]string),
		Failures:     make([]Failure, 0),
	}
}

// Duration returns how long the crawl took.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailureCount returns the number of failures of kind k.
func (r *Result) FailureCount(k FailureKind) int {
	n := 0
	for _, f := range r.Failures {
		if f.Kind == k {
			n++
		}
	}
	return n
}

// Sort puts Visited and Emails in lexical order.
func (r *Result) Sort() {
	slices.Sort(r.Visited)
	slices.Sort(r.Emails)
}
