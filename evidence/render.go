package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// RenderFetcher loads pages in headless Chrome so that script-built DOMs are
// visible to the page signals. It is much slower than HTTPFetcher.
type RenderFetcher struct {
	opts   FetchOptions
	settle time.Duration
}

// NewRenderFetcher creates a fetcher backed by a local Chrome install
// (ChromePath, or whatever chromedp finds on PATH).
func NewRenderFetcher(opts FetchOptions) *RenderFetcher {
	return &RenderFetcher{
		opts:   opts.withDefaults(),
		settle: 1500 * time.Millisecond,
	}
}

// Fetch navigates to the URL and returns the rendered outer HTML.
func (f *RenderFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.UserAgent(f.opts.UserAgent),
	)
	if f.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(f.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logrus.Debugf))
	defer browserCancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(f.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", rawURL, err)
	}
	if html == "" {
		return "", fmt.Errorf("render %s: %w", rawURL, ErrEmptyResponse)
	}

	return html, nil
}
