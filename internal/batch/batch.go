package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/mailcrawl/internal/model"
)

// CrawlFunc crawls one seed. It may return a partial result together with
// an error, for example when ctx is cancelled mid-crawl.
type CrawlFunc func(ctx context.Context, seed string) (*model.Result, error)

// Item is the outcome of one seed.
type Item struct {
	// Index is the seed's position in the input slice.
	Index int

	Seed   string
	Result *model.Result

	// Err is the error returned by the CrawlFunc, or ctx.Err() for seeds
	// that were never started because the batch was cancelled.
	Err error
}

// Processor runs a CrawlFunc over many seeds with bounded concurrency.
type Processor struct {
	crawl       CrawlFunc
	concurrency int
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger for batch-level messages.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values keep the default of 1.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProcessor creates a Processor that crawls each seed with crawl.
func NewProcessor(crawl CrawlFunc, opts ...Option) *Processor {
	p := &Processor{
		crawl:       crawl,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ProcessWithCallback crawls every seed and calls fn once per seed as soon
// as its crawl ends. Calls to fn are serialized, so fn may write to a shared
// output without locking; completion order is not input order when the
// concurrency is above one.
//
// The returned error is ctx.Err() when the batch was cancelled, nil otherwise.
func (p *Processor) ProcessWithCallback(ctx context.Context, seeds []string, fn func(Item)) error {
	p.logger.Info("starting batch crawl",
		"seeds", len(seeds),
		"concurrency", p.concurrency,
	)
	startTime := time.Now()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.concurrency)

	deliver := func(item Item) {
		mu.Lock()
		defer mu.Unlock()
		fn(item)
	}

	for i, seed := range seeds {
		// Seeds not yet started when the batch is cancelled still get an Item.
		if err := ctx.Err(); err != nil {
			deliver(Item{Index: i, Seed: seed, Err: err})
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				deliver(Item{Index: i, Seed: seed, Err: err})
				return nil
			}

			p.logger.Info("crawling seed", "seed", seed, "index", i+1, "total", len(seeds))
			result, err := p.crawl(ctx, seed)
			if err != nil {
				p.logger.Warn("crawl failed", "seed", seed, "error", err)
			}
			deliver(Item{Index: i, Seed: seed, Result: result, Err: err})
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return an error

	p.logger.Info("batch crawl complete",
		"seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}
