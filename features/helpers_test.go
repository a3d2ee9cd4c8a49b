package features

import (
	"errors"
	"strings"
	"testing"
	"time"

	"phishguard/evidence"
)

// newEvidence builds an evidence bundle without touching the network. An
// empty page means no page was fetched; a nil record means the lookup failed.
func newEvidence(t *testing.T, rawURL, page string, rec *evidence.Record) *evidence.Evidence {
	t.Helper()
	u := evidence.NormalizeURL(rawURL)
	ev := &evidence.Evidence{URL: u}

	if p, err := evidence.ParseURL(u); err == nil {
		ev.Parsed = evidence.Present(p)
	} else {
		ev.Parsed = evidence.Absent[evidence.ParsedURL](err)
	}

	if page != "" {
		doc, err := evidence.ParseDocument(strings.NewReader(page))
		if err != nil {
			t.Fatalf("ParseDocument: %v", err)
		}
		ev.Page = evidence.Present(doc)
	} else {
		ev.Page = evidence.Absent[*evidence.Document](errors.New("not fetched"))
	}

	if rec != nil {
		ev.Registration = evidence.Present(*rec)
	} else {
		ev.Registration = evidence.Absent[evidence.Record](evidence.ErrNoRecord)
	}

	return ev
}

func record(created, expires time.Time) *evidence.Record {
	return &evidence.Record{Domain: "example.com", Created: created, Expires: expires}
}

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
