package frontier

import (
	"sync"

	"github.com/nao1215/mailcrawl/internal/extract"
)

// Frontier is the crawl queue together with the visited record.
// All methods are safe for concurrent use.
type Frontier struct {
	mu sync.Mutex

	// queue holds pending URLs in offer order. head indexes the next one to pop.
	queue []string
	head  int

	// pending mirrors the live part of queue for O(1) duplicate checks.
	pending map[string]struct{}

	visited VisitedSet

	// order lists visited URLs in the order they were marked.
	order []string
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithVisitedSet replaces the default exact visited set.
func WithVisitedSet(v VisitedSet) Option {
	return func(f *Frontier) {
		if v != nil {
			f.visited = v
		}
	}
}

// New returns a Frontier whose queue holds seed as its only entry.
// An invalid seed leaves the queue empty.
func New(seed string, opts ...Option) *Frontier {
	f := &Frontier{
		queue:   make([]string, 0, 64),
		pending: make(map[string]struct{}),
		visited: NewExactSet(),
		order:   make([]string, 0, 64),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.Offer(seed)
	return f
}

// Offer appends url to the queue when it is a valid absolute URL that is
// neither visited nor already pending. It reports whether url was enqueued.
func (f *Frontier) Offer(url string) bool {
	if !extract.IsValidURL(url) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited.Has(url) {
		return false
	}
	if _, ok := f.pending[url]; ok {
		return false
	}
	f.pending[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// NextPending removes and returns the earliest offered URL.
// The boolean is false when the queue is empty.
func (f *Frontier) NextPending() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head >= len(f.queue) {
		return "", false
	}
	url := f.queue[f.head]
	f.queue[f.head] = ""
	f.head++
	delete(f.pending, url)

	// Reclaim the consumed prefix once it dominates the backing array.
	if f.head > 1024 && f.head*2 >= len(f.queue) {
		f.queue = append(f.queue[:0:0], f.queue[f.head:]...)
		f.head = 0
	}
	return url, true
}

// MarkVisited records url as visited. Calling it again is a no-op.
func (f *Frontier) MarkVisited(url string) {
	f.TryMarkVisited(url)
}

// TryMarkVisited records url as visited and reports whether this call did
// the marking. Exactly one of several concurrent callers for the same URL
// gets true, which makes it the gate for "fetch at most once".
func (f *Frontier) TryMarkVisited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.visited.Add(url) {
		return false
	}
	f.order = append(f.order, url)
	return true
}

// IsDone reports whether the crawl should stop: the budget is spent or
// nothing is pending.
func (f *Frontier) IsDone(budget, processed int) bool {
	if processed >= budget {
		return true
	}
	return f.Len() == 0
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) - f.head
}

// Visited returns the visited URLs in the order they were marked.
func (f *Frontier) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// VisitedCount returns how many URLs have been marked visited.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Len()
}
