// Package extract turns a fetched page into crawl inputs.
//
// Everything here is a pure function over strings: no network access and no
// HTML parsing. The crawler hands in the anchor hrefs it already parsed and the
// raw body text, and receives back absolute URLs and email-like strings.
//
// # Links
//
// ResolveLink applies RFC 3986 reference resolution against the URL of the page
// the href was found on. A result is only usable when it carries both a scheme
// and a host; fragment-only references ("#top") point back at the same page and
// are rejected, and the fragment of any other resolved URL is stripped.
//
// # Emails
//
// ExtractEmails is a syntactic scan. It does not verify that a mailbox or its
// domain exists, and text that merely looks like an address is reported too.
package extract
