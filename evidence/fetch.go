package evidence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxRedirects     = 10
)

// ErrEmptyResponse is returned when a fetch completed without delivering a body.
var ErrEmptyResponse = errors.New("empty response")

// Fetcher retrieves the HTML of a page. Implementations must give up once
// their configured timeout has elapsed.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// FetchOptions configures the page fetchers.
type FetchOptions struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int
	ChromePath   string
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.Timeout <= 0 {
		o.Timeout = 6 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 2 * 1024 * 1024
	}
	return o
}

// HTTPFetcher fetches pages with a plain HTTP GET, following redirects.
type HTTPFetcher struct {
	base *colly.Collector
}

// NewHTTPFetcher creates a fetcher. Error statuses still deliver their body,
// since phishing kits often serve their page behind a 404.
func NewHTTPFetcher(opts FetchOptions) *HTTPFetcher {
	opts = opts.withDefaults()

	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(opts.MaxBodyBytes),
	)
	c.SetRequestTimeout(opts.Timeout)
	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	})

	return &HTTPFetcher{base: c}
}

// Fetch performs one GET. There are no retries.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// callbacks are per call, the transport is shared
	c := f.base.Clone()

	var (
		body     []byte
		fetchErr error
		got      bool
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})
	c.OnResponse(func(r *colly.Response) {
		body = decodeBody(r.Body, r.Headers.Get("Content-Type"))
		got = true
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(rawURL); err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if fetchErr != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}
	if !got {
		return "", fmt.Errorf("fetch %s: %w", rawURL, ErrEmptyResponse)
	}

	return string(body), nil
}

// decodeBody converts a response body to UTF-8. colly already converts
// bodies whose Content-Type names a charset; this covers pages that only
// declare it in a <meta> tag or not at all. Bodies that fail to decode are
// returned unchanged.
func decodeBody(body []byte, contentType string) []byte {
	if utf8.Valid(body) {
		return body
	}
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}
