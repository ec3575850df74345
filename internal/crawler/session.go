package crawler

import (
	"sync"
	"time"

	"github.com/nao1215/mailcrawl/internal/extract"
	"github.com/nao1215/mailcrawl/internal/frontier"
	"github.com/nao1215/mailcrawl/internal/model"
)

// Session is the state of one crawl run. It owns its frontier and email set
// exclusively and is discarded when Run returns.
type Session struct {
	Seed     string
	Budget   int
	Frontier *frontier.Frontier
	Emails   *extract.EmailSet

	startedAt time.Time

	mu        sync.Mutex
	processed int
	failures  []model.Failure
}

func newSession(seed string, budget int, visited frontier.VisitedSet) *Session {
	return &Session{
		Seed:      seed,
		Budget:    budget,
		Frontier:  frontier.New(seed, frontier.WithVisitedSet(visited)),
		Emails:    extract.NewEmailSet(),
		startedAt: time.Now(),
		failures:  make([]model.Failure, 0),
	}
}

// Processed returns the number of successfully processed pages.
func (s *Session) Processed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed
}

// claimSuccess counts one more processed page if the budget allows it.
// It reports whether the page was counted.
func (s *Session) claimSuccess() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processed >= s.Budget {
		return s.processed, false
	}
	s.processed++
	return s.processed, true
}

func (s *Session) recordFailure(f model.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

// Result snapshots the session into a model.Result with sorted collections.
func (s *Session) Result() *model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := model.NewResult(s.Seed, s.Budget)
	r.StartedAt = s.startedAt
	r.FinishedAt = time.Now()
	r.PagesProcessed = s.processed
	r.Visited = s.Frontier.Visited()
	r.Emails = s.Emails.Sorted()
	r.EmailSources = s.Emails.Sources()
	r.Failures = append(r.Failures, s.failures...)
	r.Sort()
	return r
}
