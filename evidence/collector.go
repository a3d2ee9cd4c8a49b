package evidence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrSourceDisabled marks a source the collector was built without.
var ErrSourceDisabled = errors.New("evidence source disabled")

// Source names an evidence source in outcome callbacks.
type Source string

const (
	SourcePage     Source = "page"
	SourceRegistry Source = "registry"
)

// Evidence is everything collected for one URL. It is read-only once
// Collect returns.
type Evidence struct {
	URL          string
	Parsed       Result[ParsedURL]
	Page         Result[*Document]
	Registration Result[Record]
}

// Netloc returns the network location, or "" when the URL did not parse.
func (e *Evidence) Netloc() string {
	p, ok := e.Parsed.Get()
	if !ok {
		return ""
	}
	return p.Netloc
}

// Document returns the fetched page, or the empty document when there is none.
// A missing page and an empty page read the same.
func (e *Evidence) Document() *Document {
	d, ok := e.Page.Get()
	if !ok {
		return EmptyDocument()
	}
	return d
}

// Collector gathers evidence for URLs. It holds no per-URL state and is safe
// for concurrent use.
type Collector struct {
	fetcher   Fetcher
	registrar Registrar
	onOutcome func(source Source, ok bool, elapsed time.Duration)
}

// Option configures a Collector.
type Option func(*Collector)

// WithOutcomeHook registers a callback invoked after each evidence source
// finishes, used for metrics.
func WithOutcomeHook(fn func(source Source, ok bool, elapsed time.Duration)) Option {
	return func(c *Collector) {
		c.onOutcome = fn
	}
}

// NewCollector creates a collector. A nil fetcher or registrar disables that
// source; its evidence is then always absent.
func NewCollector(fetcher Fetcher, registrar Registrar, opts ...Option) *Collector {
	c := &Collector{
		fetcher:   fetcher,
		registrar: registrar,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect normalizes the URL and gathers its evidence. It never fails: each
// source that cannot deliver is recorded as absent. Sources are tried once,
// in order, each bounded by its own timeout.
func (c *Collector) Collect(ctx context.Context, rawURL string) *Evidence {
	normalized := NormalizeURL(rawURL)
	ev := &Evidence{URL: normalized}

	parsed, err := ParseURL(normalized)
	if err != nil {
		logrus.WithField("url", normalized).Debugf("[PARSE] unparseable URL: %v", err)
		ev.Parsed = Absent[ParsedURL](err)
	} else {
		ev.Parsed = Present(parsed)
	}

	ev.Page = c.collectPage(ctx, normalized)
	ev.Registration = c.collectRegistration(ctx, ev.Parsed)

	return ev
}

func (c *Collector) collectPage(ctx context.Context, normalized string) Result[*Document] {
	if c.fetcher == nil {
		return Absent[*Document](ErrSourceDisabled)
	}

	start := time.Now()
	body, err := c.fetcher.Fetch(ctx, normalized)
	if err == nil {
		var doc *Document
		doc, err = ParseDocument(strings.NewReader(body))
		if err == nil {
			c.report(SourcePage, true, time.Since(start))
			return Present(doc)
		}
	}

	logrus.WithField("url", normalized).Debugf("[FETCH] page unavailable: %v", err)
	c.report(SourcePage, false, time.Since(start))
	return Absent[*Document](err)
}

func (c *Collector) collectRegistration(ctx context.Context, parsed Result[ParsedURL]) Result[Record] {
	if c.registrar == nil {
		return Absent[Record](ErrSourceDisabled)
	}

	p, ok := parsed.Get()
	if !ok || p.Hostname == "" {
		return Absent[Record](ErrNoRegistrableDomain)
	}

	start := time.Now()
	rec, err := c.registrar.Lookup(ctx, p.Hostname)
	if err != nil {
		logrus.WithField("host", p.Hostname).Debugf("[WHOIS] no record: %v", err)
		c.report(SourceRegistry, false, time.Since(start))
		return Absent[Record](err)
	}

	c.report(SourceRegistry, true, time.Since(start))
	return Present(rec)
}

func (c *Collector) report(source Source, ok bool, elapsed time.Duration) {
	if c.onOutcome != nil {
		c.onOutcome(source, ok, elapsed)
	}
}
