// Package batch crawls several seeds concurrently.
//
// Each seed is an independent crawl: the CrawlFunc passed to NewProcessor
// builds whatever per-seed state it needs (site configuration, fetcher,
// engine) and returns the seed's result. The Processor only bounds how many
// crawls run at once, hands each outcome to a callback tagged with the
// seed's input index, and stops starting new crawls once the context is
// cancelled.
//
// Per-seed failures never abort the batch; they are reported in the Item
// for that seed.
package batch
