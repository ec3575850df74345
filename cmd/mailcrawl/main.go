// Package main provides the entry point for the mailcrawl CLI.
//
// mailcrawl crawls a website breadth-first from a seed URL, up to a page
// budget, and collects the email addresses found in the pages it visits.
//
// Usage:
//
//	mailcrawl crawl https://example.com/
//	mailcrawl crawl --max-pages 200 --workers 4 https://example.com/
//	mailcrawl history https://example.com/
//
// See --help for all available options.
package main

func main() {
	Execute()
}
