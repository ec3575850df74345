package frontier

import "github.com/cespare/xxhash/v2"

// VisitedSet records which URLs have been dequeued for processing.
// Implementations need not be safe for concurrent use; Frontier serializes
// every call.
type VisitedSet interface {
	// Add records url and reports whether it was absent before the call.
	Add(url string) bool

	// Has reports whether url has been recorded.
	Has(url string) bool

	// Len returns the number of recorded URLs.
	Len() int
}

// ExactSet is a VisitedSet keyed by the full URL string.
type ExactSet struct {
	urls map[string]struct{}
}

// NewExactSet returns an empty ExactSet.
func NewExactSet() *ExactSet {
	return &ExactSet{urls: make(map[string]struct{})}
}

// Add implements VisitedSet.
func (s *ExactSet) Add(url string) bool {
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Has implements VisitedSet.
func (s *ExactSet) Has(url string) bool {
	_, ok := s.urls[url]
	return ok
}

// Len implements VisitedSet.
func (s *ExactSet) Len() int {
	return len(s.urls)
}

// HashedSet is a VisitedSet that keeps only the xxhash64 digest of each URL,
// so its index entries are eight bytes regardless of URL length. Two URLs
// with the same digest are treated as one. Frontier still keeps the visited
// URLs themselves for the result.
type HashedSet struct {
	digests map[uint64]struct{}
}

// NewHashedSet returns an empty HashedSet.
func NewHashedSet() *HashedSet {
	return &HashedSet{digests: make(map[uint64]struct{})}
}

// Add implements VisitedSet.
func (s *HashedSet) Add(url string) bool {
	d := xxhash.Sum64String(url)
	if _, ok := s.digests[d]; ok {
		return false
	}
	s.digests[d] = struct{}{}
	return true
}

// Has implements VisitedSet.
func (s *HashedSet) Has(url string) bool {
	_, ok := s.digests[xxhash.Sum64String(url)]
	return ok
}

// Len implements VisitedSet.
func (s *HashedSet) Len() int {
	return len(s.digests)
}
