package evidence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubFetcher struct {
	body string
	err  error
	urls []string
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	s.urls = append(s.urls, rawURL)
	return s.body, s.err
}

type stubRegistrar struct {
	rec   Record
	err   error
	hosts []string
}

func (s *stubRegistrar) Lookup(_ context.Context, host string) (Record, error) {
	s.hosts = append(s.hosts, host)
	return s.rec, s.err
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()
	f := &stubFetcher{body: `<html><body><a href="/x">x</a></body></html>`}
	r := &stubRegistrar{rec: Record{Domain: "example.com", Created: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}}

	ev := NewCollector(f, r).Collect(context.Background(), "Example.com:8080/login")

	if ev.URL != "http://Example.com:8080/login" {
		t.Errorf("URL = %q, want normalized URL", ev.URL)
	}
	if len(f.urls) != 1 || f.urls[0] != ev.URL {
		t.Errorf("fetcher called with %v, want exactly [%s]", f.urls, ev.URL)
	}
	if len(r.hosts) != 1 || r.hosts[0] != "example.com" {
		t.Errorf("registrar called with %v, want [example.com]", r.hosts)
	}
	if ev.Netloc() != "Example.com:8080" {
		t.Errorf("Netloc() = %q, want Example.com:8080", ev.Netloc())
	}
	if !ev.Page.Ok() || !ev.Registration.Ok() {
		t.Errorf("Page.Ok=%v Registration.Ok=%v, want both present", ev.Page.Ok(), ev.Registration.Ok())
	}
	sel, err := ev.Document().Find("a[href]")
	if err != nil || sel.Length() != 1 {
		t.Errorf("Document().Find(a[href]) = %v, %v; want 1 anchor", sel, err)
	}
}

func TestCollector_FailuresBecomeAbsent(t *testing.T) {
	t.Parallel()
	fetchErr := errors.New("connection refused")
	f := &stubFetcher{err: fetchErr}
	r := &stubRegistrar{err: ErrNoRecord}

	ev := NewCollector(f, r).Collect(context.Background(), "http://unreachable.test/")

	if ev.Page.Ok() {
		t.Error("Page present after fetch failure")
	}
	if !errors.Is(ev.Page.Reason(), fetchErr) {
		t.Errorf("Page.Reason() = %v, want %v", ev.Page.Reason(), fetchErr)
	}
	if ev.Registration.Ok() {
		t.Error("Registration present after lookup failure")
	}
	sel, err := ev.Document().Find("a")
	if err != nil || sel.Length() != 0 {
		t.Errorf("absent page should read as empty document, got %v, %v", sel, err)
	}
}

func TestCollector_DisabledSources(t *testing.T) {
	t.Parallel()
	ev := NewCollector(nil, nil).Collect(context.Background(), "https://example.com")
	if !errors.Is(ev.Page.Reason(), ErrSourceDisabled) {
		t.Errorf("Page.Reason() = %v, want ErrSourceDisabled", ev.Page.Reason())
	}
	if !errors.Is(ev.Registration.Reason(), ErrSourceDisabled) {
		t.Errorf("Registration.Reason() = %v, want ErrSourceDisabled", ev.Registration.Reason())
	}
	if !ev.Parsed.Ok() {
		t.Error("Parsed absent for a valid URL")
	}
}

func TestCollector_MalformedURLKeepsHost(t *testing.T) {
	t.Parallel()
	r := &stubRegistrar{err: ErrNoRecord}
	ev := NewCollector(&stubFetcher{err: errors.New("bad url")}, r).Collect(context.Background(), "http://Login-Secure.example.com/%zz")
	if !ev.Parsed.Ok() {
		t.Fatalf("Parsed absent: %v", ev.Parsed.Reason())
	}
	if ev.Netloc() != "Login-Secure.example.com" {
		t.Errorf("Netloc() = %q, want Login-Secure.example.com", ev.Netloc())
	}
	if len(r.hosts) != 1 || r.hosts[0] != "login-secure.example.com" {
		t.Errorf("registrar called with %v, want [login-secure.example.com]", r.hosts)
	}
}

func TestCollector_UnparseableURL(t *testing.T) {
	t.Parallel()
	r := &stubRegistrar{}
	ev := NewCollector(&stubFetcher{err: errors.New("bad url")}, r).Collect(context.Background(), "http://[::1/")
	if ev.Parsed.Ok() {
		t.Error("Parsed present for unbalanced IPv6 host")
	}
	if ev.Netloc() != "" {
		t.Errorf("Netloc() = %q, want empty", ev.Netloc())
	}
	if len(r.hosts) != 0 {
		t.Errorf("registrar queried %v for unparseable URL", r.hosts)
	}
	if !errors.Is(ev.Registration.Reason(), ErrNoRegistrableDomain) {
		t.Errorf("Registration.Reason() = %v, want ErrNoRegistrableDomain", ev.Registration.Reason())
	}
}

func TestCollector_OutcomeHook(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	got := map[Source]bool{}
	hook := WithOutcomeHook(func(source Source, ok bool, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		got[source] = ok
	})

	NewCollector(&stubFetcher{body: "<p>hi</p>"}, &stubRegistrar{err: ErrNoRecord}, hook).
		Collect(context.Background(), "example.com")

	if ok, seen := got[SourcePage]; !seen || !ok {
		t.Errorf("page outcome = %v (seen %v), want success", ok, seen)
	}
	if ok, seen := got[SourceRegistry]; !seen || ok {
		t.Errorf("registry outcome = %v (seen %v), want failure", ok, seen)
	}
}
