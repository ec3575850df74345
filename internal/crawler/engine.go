package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/mailcrawl/internal/extract"
	"github.com/nao1215/mailcrawl/internal/fetcher"
	"github.com/nao1215/mailcrawl/internal/frontier"
	"github.com/nao1215/mailcrawl/internal/model"
)

// DefaultTimeout is the per-fetch timeout.
const DefaultTimeout = 5 * time.Second

// StatusPolicy reports whether an HTTP status code counts as a successful page.
type StatusPolicy func(statusCode int) bool

// Success2xx accepts every 2xx status.
func Success2xx(code int) bool {
	return code >= 200 && code < 300
}

// StrictOK accepts only 200, matching crawlers that reject everything else.
func StrictOK(code int) bool {
	return code == 200
}

// PageEvent describes one finished frontier entry. It is delivered to the
// progress callback from the goroutine that runs Engine.Run.
type PageEvent struct {
	URL        string
	StatusCode int

	// Failure is nil for successfully processed pages.
	Failure *model.Failure

	LinksFound  int
	LinksQueued int
	EmailsFound int
	EmailsNew   int

	// Processed is the session's processed count after this page.
	Processed int
	Pending   int
}

// Engine drives crawls. An Engine holds configuration only; every Run gets
// a fresh Session, so one Engine can run many crawls, also concurrently.
type Engine struct {
	fetcher  fetcher.Fetcher
	parser   AnchorParser
	timeout  time.Duration
	workers  int
	logger   *slog.Logger
	policy   StatusPolicy
	filter   *LinkFilter
	sameHost bool
	compact  bool
	progress func(PageEvent)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithWorkers sets how many pages may be fetched concurrently.
// One, the default, processes pages strictly in breadth-first order.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStatusPolicy replaces the default Success2xx policy.
func WithStatusPolicy(p StatusPolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithLinkFilter applies f to every discovered link.
func WithLinkFilter(f *LinkFilter) Option {
	return func(e *Engine) {
		e.filter = f
	}
}

// WithSameHost restricts the crawl to the seed's host.
func WithSameHost(same bool) Option {
	return func(e *Engine) {
		e.sameHost = same
	}
}

// WithCompactVisited deduplicates visited URLs by 64-bit hash. The visited
// list in the result is unaffected.
func WithCompactVisited(compact bool) Option {
	return func(e *Engine) {
		e.compact = compact
	}
}

// WithProgress registers fn to be called after every frontier entry.
func WithProgress(fn func(PageEvent)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// NewEngine returns an Engine that fetches with f and parses with p.
// A nil parser selects HTMLParser.
func NewEngine(f fetcher.Fetcher, p AnchorParser, opts ...Option) *Engine {
	if p == nil {
		p = NewHTMLParser()
	}
	e := &Engine{
		fetcher: f,
		parser:  p,
		timeout: DefaultTimeout,
		workers: 1,
		logger:  slog.Default(),
		policy:  Success2xx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pageOutcome is the result of processing one URL: either links and emails,
// or a failure. Workers produce it; only the Run goroutine consumes it.
type pageOutcome struct {
	url        string
	statusCode int
	failure    *model.Failure
	links      []string
	linksFound int
	emails     []string

	// redirectedTo is the normalized final URL when it differs from url.
	redirectedTo string

	// cancelled marks a fetch cut short by the crawl's own cancellation.
	cancelled bool
}

// Run crawls breadth-first from seed until budget pages have been processed
// successfully or the frontier is exhausted.
//
// Only malformed input is returned as an error. Per-page failures are
// recorded in the result. If ctx is cancelled, Run stops taking new pages,
// waits for in-flight ones, and returns the partial result with ctx.Err().
func (e *Engine) Run(ctx context.Context, seed string, budget int) (*model.Result, error) {
	normalized, ok := extract.NormalizeURL(seed)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	if budget < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBudget, budget)
	}

	filter := e.filter
	if e.sameHost {
		u, err := url.Parse(normalized)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		filter = filter.withSameHost(u.Host)
	}

	var visited frontier.VisitedSet = frontier.NewExactSet()
	if e.compact {
		visited = frontier.NewHashedSet()
	}
	s := newSession(normalized, budget, visited)

	e.logger.Info("crawl started",
		"seed", normalized,
		"budget", budget,
		"workers", e.workers,
		"timeout", e.timeout,
	)

	var g errgroup.Group
	g.SetLimit(e.workers)
	outcomes := make(chan pageOutcome, e.workers)
	active := 0

	for {
		// Dispatch while a worker is free and the budget still has room for
		// every in-flight page to succeed.
		for active < e.workers && ctx.Err() == nil && !s.Frontier.IsDone(budget, s.Processed()+active) {
			pageURL, ok := s.Frontier.NextPending()
			if !ok {
				break
			}
			// The same URL can be queued again after it was popped but
			// before it was marked; the second pop is skipped uncounted.
			if !s.Frontier.TryMarkVisited(pageURL) {
				continue
			}
			active++
			g.Go(func() error {
				outcomes <- e.processPage(ctx, pageURL, filter)
				return nil
			})
		}

		if active == 0 {
			break
		}
		out := <-outcomes
		active--
		e.apply(s, out)
	}

	_ = g.Wait() //nolint:errcheck // workers never return an error

	result := s.Result()
	if err := ctx.Err(); err != nil {
		result.Interrupted = true
		e.logger.Warn("crawl interrupted",
			"seed", normalized,
			"processed", result.PagesProcessed,
			"error", err,
		)
		return result, err
	}

	e.logger.Info("crawl finished",
		"seed", normalized,
		"processed", result.PagesProcessed,
		"visited", len(result.Visited),
		"emails", len(result.Emails),
		"failures", len(result.Failures),
		"elapsed", result.Duration(),
	)
	return result, nil
}

// processPage fetches and extracts one URL. It touches no session state and
// is safe to run on any goroutine.
func (e *Engine) processPage(ctx context.Context, pageURL string, filter *LinkFilter) pageOutcome {
	e.logger.Debug("crawling", "url", pageURL)

	resp, err := e.fetcher.Fetch(ctx, pageURL, e.timeout)
	if err != nil {
		if ctx.Err() != nil {
			return pageOutcome{url: pageURL, cancelled: true}
		}
		return pageOutcome{
			url: pageURL,
			failure: &model.Failure{
				URL:     pageURL,
				Kind:    model.FailureTransport,
				Message: transportMessage(err),
			},
		}
	}

	if !e.policy(resp.StatusCode) {
		return pageOutcome{
			url:        pageURL,
			statusCode: resp.StatusCode,
			failure: &model.Failure{
				URL:        pageURL,
				Kind:       model.FailureStatus,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("unsuccessful status %d", resp.StatusCode),
			},
		}
	}

	base := resp.FinalURL
	if base == "" {
		base = pageURL
	}
	var redirectedTo string
	if final, ok := extract.NormalizeURL(base); ok && final != pageURL {
		redirectedTo = final
	}

	hrefs, err := e.parser.ParseAnchors(resp.Body)
	if err != nil {
		e.logger.Debug("anchor parsing failed", "url", pageURL, "error", err)
		hrefs = nil
	}

	resolved := extract.ExtractLinks(hrefs, base)
	links := make([]string, 0, len(resolved))
	for _, link := range resolved {
		if filter.Allow(link) {
			links = append(links, link)
		}
	}

	return pageOutcome{
		url:          pageURL,
		statusCode:   resp.StatusCode,
		links:        links,
		linksFound:   len(resolved),
		emails:       extract.ExtractEmails(resp.Text()),
		redirectedTo: redirectedTo,
	}
}

// apply merges one outcome into the session. It runs on the Run goroutine only.
func (e *Engine) apply(s *Session, out pageOutcome) {
	if out.cancelled {
		e.logger.Debug("fetch cancelled", "url", out.url)
		return
	}

	ev := PageEvent{
		URL:        out.url,
		StatusCode: out.statusCode,
		Failure:    out.failure,
	}

	if out.failure != nil {
		s.recordFailure(*out.failure)
		e.logger.Warn("page failed",
			"url", out.url,
			"kind", string(out.failure.Kind),
			"status", out.failure.StatusCode,
			"error", out.failure.Message,
		)
		ev.Processed = s.Processed()
	} else {
		processed, counted := s.claimSuccess()
		ev.Processed = processed
		if counted {
			// The redirect target's content has just been processed; fetching
			// it again through a later link would count it twice.
			if out.redirectedTo != "" {
				s.Frontier.MarkVisited(out.redirectedTo)
			}
			ev.LinksFound = out.linksFound
			ev.EmailsFound = len(out.emails)
			ev.EmailsNew = s.Emails.Merge(out.emails, out.url)
			for _, link := range out.links {
				if s.Frontier.Offer(link) {
					ev.LinksQueued++
				}
			}
			e.logger.Debug("page processed",
				"url", out.url,
				"status", out.statusCode,
				"links", ev.LinksFound,
				"queued", ev.LinksQueued,
				"emails", ev.EmailsFound,
			)
		}
	}

	ev.Pending = s.Frontier.Len()
	if e.progress != nil {
		e.progress(ev)
	}
}

// transportMessage renders a fetch error without repeating the URL.
func transportMessage(err error) string {
	var te *fetcher.TransportError
	if errors.As(err, &te) {
		if te.Timeout() {
			return "timeout: " + te.Err.Error()
		}
		return te.Err.Error()
	}
	return err.Error()
}
