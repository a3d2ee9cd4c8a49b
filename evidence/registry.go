package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

var (
	// ErrNoRegistrableDomain is returned for IP hosts and empty network locations.
	ErrNoRegistrableDomain = errors.New("no registrable domain")
	// ErrNoRecord is returned when the registry answered without a usable record.
	ErrNoRecord = errors.New("no registration record")
)

// Record is the subset of a registration record the signals use. Expires is
// zero when the registry did not publish it.
type Record struct {
	Domain    string
	Registrar string
	Created   time.Time
	Expires   time.Time
}

// Registrar looks up the registration record of a host.
type Registrar interface {
	Lookup(ctx context.Context, host string) (Record, error)
}

// WhoisRegistrar queries WHOIS servers over port 43.
type WhoisRegistrar struct {
	query func(domain string) (string, error)
}

// NewWhoisRegistrar creates a registrar whose every query gives up after timeout.
func NewWhoisRegistrar(timeout time.Duration) *WhoisRegistrar {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := whois.NewClient().SetTimeout(timeout)
	return &WhoisRegistrar{
		query: func(domain string) (string, error) {
			return client.Whois(domain)
		},
	}
}

// Lookup resolves the registrable domain of host and parses its WHOIS record.
func (r *WhoisRegistrar) Lookup(ctx context.Context, host string) (Record, error) {
	domain := RegistrableDomain(host)
	if domain == "" {
		return Record{}, ErrNoRegistrableDomain
	}

	raw, err := r.queryContext(ctx, domain)
	if err != nil {
		return Record{}, fmt.Errorf("whois %s: %w", domain, err)
	}

	return parseRecord(domain, raw)
}

// queryContext runs the blocking WHOIS query but stops waiting when ctx is
// done. The query itself is bounded by the client timeout.
func (r *WhoisRegistrar) queryContext(ctx context.Context, domain string) (string, error) {
	type answer struct {
		raw string
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		raw, err := r.query(domain)
		ch <- answer{raw: raw, err: err}
	}()

	select {
	case a := <-ch:
		return a.raw, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func parseRecord(domain, raw string) (Record, error) {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return Record{}, fmt.Errorf("%w for %s: %v", ErrNoRecord, domain, err)
	}
	if info.Domain == nil {
		return Record{}, fmt.Errorf("%w for %s", ErrNoRecord, domain)
	}

	rec := Record{
		Domain:  domain,
		Created: parseRegistryDate(info.Domain.CreatedDate),
		Expires: parseRegistryDate(info.Domain.ExpirationDate),
	}
	if info.Registrar != nil {
		rec.Registrar = info.Registrar.Name
	}

	if rec.Created.IsZero() {
		return Record{}, fmt.Errorf("%w for %s: no creation date", ErrNoRecord, domain)
	}

	return rec, nil
}

var registryDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"02-Jan-2006 15:04:05 MST",
	"2006.01.02",
	"2006/01/02",
	"02.01.2006",
	"January 2 2006",
}

// parseRegistryDate returns the zero time for empty or unrecognised dates.
func parseRegistryDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, l := range registryDateLayouts {
		t, err := time.Parse(l, s)
		if err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}
