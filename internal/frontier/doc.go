// Package frontier holds the crawl queue and the record of visited URLs.
//
// A Frontier is a FIFO of pending URLs plus a visited set. It guarantees that
// a URL which has been marked visited never re-enters the queue and that the
// queue never holds the same URL twice. Dequeue order is the order in which
// URLs were first offered, so a crawler draining the frontier walks the link
// graph breadth-first.
//
// The visited set is pluggable. NewExactSet stores full URL strings;
// NewHashedSet stores 64-bit xxhash digests, which keeps the lookup table at
// eight bytes per key for very large budgets at the cost of a tiny probability
// that two distinct URLs collide and the second one is treated as already
// visited. The ordered list of visited URLs reported at the end of a crawl is
// kept either way.
package frontier
