// Package crawler implements the crawl engine.
//
// # Architecture
//
// Engine.Run owns one Session per crawl. The session holds a frontier (FIFO
// queue plus visited set), an email set, the page budget and the count of
// pages processed successfully. The loop is:
//
//  1. Pop the next pending URL and mark it visited before fetching it.
//  2. Fetch it through the injected fetcher.Fetcher with a per-fetch timeout.
//  3. On a transport failure or a status rejected by the StatusPolicy, record
//     a model.Failure and move on. The page is not counted.
//  4. Otherwise parse anchors with the injected AnchorParser, resolve them
//     against the page URL, scan the body for emails, merge both into the
//     session and count the page.
//
// The loop ends when the budget is reached or the frontier is empty.
//
// # Concurrency
//
// With one worker (the default) pages are processed strictly in order, which
// makes the traversal breadth-first. With more workers, fetch and extraction
// run on errgroup goroutines while a single goroutine owns dispatch and
// merging. Dispatch never lets budget minus processed fall below the number of
// in-flight pages, so the budget ceiling holds exactly. Marking a URL visited
// is an atomic compare-and-mark on the frontier.
//
// # Usage
//
//	engine := crawler.NewEngine(fetcher.NewHTTPFetcher(), nil,
//		crawler.WithTimeout(5*time.Second),
//	)
//	result, err := engine.Run(ctx, "https://example.com/", 50)
package crawler
