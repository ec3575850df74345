package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultUserAgent is sent when no other User-Agent is configured.
	DefaultUserAgent = "mailcrawl/1.0 (+https://github.com/nao1215/mailcrawl)"

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	// maxRedirects matches the net/http default.
	maxRedirects = 10
)

// Fetcher retrieves a single URL.
type Fetcher interface {
	// Fetch requests url and gives up after timeout. A non-nil *Response is
	// returned for any HTTP answer; a *TransportError otherwise.
	Fetch(ctx context.Context, url string, timeout time.Duration) (*Response, error)
}

// Response is the answer to one fetch.
type Response struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the URL that produced the body. It differs from URL only
	// when redirects were followed.
	FinalURL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// ContentType is the Content-Type header of the final response.
	ContentType string

	// Body holds at most the configured maximum number of body bytes.
	Body []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// TransportError reports that url could not be retrieved at all.
type TransportError struct {
	URL string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline expiry.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

// HTTPFetcher is a Fetcher backed by net/http.
type HTTPFetcher struct {
	client          *http.Client
	userAgent       string
	maxBodySize     int64
	headers         map[string]string
	cookie          string
	followRedirects bool
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient uses client as the transport. The client is copied, so its
// redirect policy is never modified in place.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
// Non-positive values keep the default.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithHeaders adds custom request headers.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		if f.headers == nil {
			f.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithCookie sends cookie as the Cookie header on every request.
func WithCookie(cookie string) Option {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithFollowRedirects controls whether 3xx responses are followed.
// When false the 3xx response itself is returned.
func WithFollowRedirects(follow bool) Option {
	return func(f *HTTPFetcher) {
		f.followRedirects = follow
	}
}

// NewHTTPFetcher returns an HTTPFetcher. Redirects are followed by default.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:          http.DefaultClient,
		userAgent:       DefaultUserAgent,
		maxBodySize:     DefaultMaxBodySize,
		followRedirects: true,
	}
	for _, opt := range opts {
		opt(f)
	}

	c := *f.client
	if f.followRedirects {
		c.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	f.client = &c

	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:         url,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
