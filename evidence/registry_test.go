package evidence

import (
	"context"
	"errors"
	"testing"
	"time"
)

const verisignRecord = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Registrar URL: http://res-dom.iana.org
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2026-08-13T04:00:00Z
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Registrar IANA ID: 376
   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
>>> Last update of whois database: 2025-01-10T10:00:00Z <<<
`

const notFoundRecord = `No match for "NO-SUCH-DOMAIN-PHISHGUARD.COM".
>>> Last update of whois database: 2025-01-10T10:00:00Z <<<
`

func TestParseRegistryDate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1995-08-14T04:00:00Z", time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC)},
		{"2020-01-02 03:04:05", time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2020-01-02", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"02-Jan-2021", time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2021.03.04", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"  2022/05/06  ", time.Date(2022, 5, 6, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := parseRegistryDate(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseRegistryDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRegistryDate_Unrecognised(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   ", "not a date", "14/08/95"} {
		if got := parseRegistryDate(in); !got.IsZero() {
			t.Errorf("parseRegistryDate(%q) = %v, want zero", in, got)
		}
	}
}

func fakeWhois(raw string, err error) *WhoisRegistrar {
	return &WhoisRegistrar{query: func(string) (string, error) { return raw, err }}
}

func TestWhoisRegistrar_Lookup(t *testing.T) {
	t.Parallel()
	var queried string
	r := &WhoisRegistrar{query: func(domain string) (string, error) {
		queried = domain
		return verisignRecord, nil
	}}

	rec, err := r.Lookup(context.Background(), "www.example.com")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if queried != "example.com" {
		t.Errorf("queried %q, want registrable domain example.com", queried)
	}
	if rec.Created.Year() != 1995 || rec.Created.Month() != time.August {
		t.Errorf("Created = %v, want 1995-08", rec.Created)
	}
	if rec.Expires.Year() != 2026 {
		t.Errorf("Expires = %v, want 2026", rec.Expires)
	}
}

func TestWhoisRegistrar_NotFound(t *testing.T) {
	t.Parallel()
	_, err := fakeWhois(notFoundRecord, nil).Lookup(context.Background(), "no-such-domain-phishguard.com")
	if !errors.Is(err, ErrNoRecord) {
		t.Errorf("Lookup(not found) error = %v, want ErrNoRecord", err)
	}
}

func TestWhoisRegistrar_QueryError(t *testing.T) {
	t.Parallel()
	cause := errors.New("dial tcp: i/o timeout")
	_, err := fakeWhois("", cause).Lookup(context.Background(), "example.com")
	if !errors.Is(err, cause) {
		t.Errorf("Lookup error = %v, want wrapped %v", err, cause)
	}
}

func TestWhoisRegistrar_IPHost(t *testing.T) {
	t.Parallel()
	called := false
	r := &WhoisRegistrar{query: func(string) (string, error) {
		called = true
		return verisignRecord, nil
	}}
	_, err := r.Lookup(context.Background(), "192.168.1.1")
	if !errors.Is(err, ErrNoRegistrableDomain) {
		t.Errorf("Lookup(IP) error = %v, want ErrNoRegistrableDomain", err)
	}
	if called {
		t.Error("Lookup(IP) queried WHOIS")
	}
}

func TestWhoisRegistrar_ContextCancelled(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	defer close(release)
	r := &WhoisRegistrar{query: func(string) (string, error) {
		<-release
		return verisignRecord, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Lookup(ctx, "example.com")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lookup error = %v, want deadline exceeded", err)
	}
}
