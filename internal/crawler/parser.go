package crawler

import (
	"bytes"

	"golang.org/x/net/html"
)

// AnchorParser extracts hyperlink targets from a document.
type AnchorParser interface {
	// ParseAnchors returns the href attribute of every anchor in body, in
	// document order. Values are returned as written; resolving them is the
	// caller's job.
	ParseAnchors(body []byte) ([]string, error)
}

// HTMLParser is an AnchorParser for HTML documents built on
// golang.org/x/net/html, which tolerates the malformed markup common on the web.
type HTMLParser struct{}

// NewHTMLParser returns an HTMLParser.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// ParseAnchors implements AnchorParser.
func (p *HTMLParser) ParseAnchors(body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	hrefs := make([]string, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := getAttr(n, "href"); ok && href != "" {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return hrefs, nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
