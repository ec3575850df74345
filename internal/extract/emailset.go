package extract

import (
	"slices"
	"sync"
)

// EmailSet accumulates distinct email addresses over a crawl.
// It only grows, and it is safe for concurrent use: Add and Merge are set
// unions, so the order in which writers arrive does not change the contents.
type EmailSet struct {
	mu sync.RWMutex

	// sources maps each address to the first page it was seen on.
	sources map[string]string
}

// NewEmailSet returns an empty EmailSet.
func NewEmailSet() *EmailSet {
	return &EmailSet{sources: make(map[string]string)}
}

// Add inserts email, remembering pageURL if the address is new.
// It reports whether the address was new.
func (s *EmailSet) Add(email, pageURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[email]; ok {
		return false
	}
	s.sources[email] = pageURL
	return true
}

// Merge adds every address in emails and returns how many were new.
func (s *EmailSet) Merge(emails []string, pageURL string) int {
	added := 0
	for _, email := range emails {
		if s.Add(email, pageURL) {
			added++
		}
	}
	return added
}

// Len returns the number of distinct addresses.
func (s *EmailSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// Sorted returns the addresses in lexical order.
func (s *EmailSet) Sorted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sources))
	for email := range s.sources {
		out = append(out, email)
	}
	slices.Sort(out)
	return out
}

// Sources returns a copy of the address to first-seen page mapping.
func (s *EmailSet) Sources() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.sources))
	for email, page := range s.sources {
		out[email] = page
	}
	return out
}
