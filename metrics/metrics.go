package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"phishguard/evidence"
	"phishguard/model"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	StartTime         time.Time `json:"start_time"`
	UptimeSeconds     int64     `json:"uptime_seconds"`
	Classifications   int       `json:"classifications"`
	Phishing          int       `json:"phishing"`
	Legitimate        int       `json:"legitimate"`
	Failures          int       `json:"failures"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	RecordsFound      int       `json:"records_found"`
	RecordsFailed     int       `json:"records_failed"`
	TotalClassifyMs   int64     `json:"total_classify_ms"`
	AvgClassifyMs     int64     `json:"avg_classify_ms"`
	AvgFetchMs        int64     `json:"avg_fetch_ms"`
	AvgLookupMs       int64     `json:"avg_lookup_ms"`
	TerminationReason string    `json:"termination_reason,omitempty"`
}

// Tracker holds and manages classification metrics
type Tracker struct {
	mu            sync.Mutex
	data          Snapshot
	totalFetchMs  int64
	fetchCount    int
	totalLookupMs int64
	lookupCount   int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: Snapshot{
			StartTime: time.Now(),
		},
	}
}

// RecordClassification counts one finished classification.
func (t *Tracker) RecordClassification(label model.Label, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Classifications++
	switch label {
	case model.Phishing:
		t.data.Phishing++
	case model.Legitimate:
		t.data.Legitimate++
	}
	t.data.TotalClassifyMs += duration.Milliseconds()
}

// IncrementFailures counts a classification that returned an error.
func (t *Tracker) IncrementFailures() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Failures++
}

// RecordEvidence counts the outcome of one evidence source. Its signature
// matches evidence.WithOutcomeHook.
func (t *Tracker) RecordEvidence(source evidence.Source, ok bool, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch source {
	case evidence.SourcePage:
		if ok {
			t.data.PagesFetched++
		} else {
			t.data.PagesFailed++
		}
		t.totalFetchMs += elapsed.Milliseconds()
		t.fetchCount++
	case evidence.SourceRegistry:
		if ok {
			t.data.RecordsFound++
		} else {
			t.data.RecordsFailed++
		}
		t.totalLookupMs += elapsed.Milliseconds()
		t.lookupCount++
	}
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := t.data
	s.UptimeSeconds = int64(time.Since(s.StartTime).Seconds())
	if s.Classifications > 0 {
		s.AvgClassifyMs = s.TotalClassifyMs / int64(s.Classifications)
	}
	if t.fetchCount > 0 {
		s.AvgFetchMs = t.totalFetchMs / int64(t.fetchCount)
	}
	if t.lookupCount > 0 {
		s.AvgLookupMs = t.totalLookupMs / int64(t.lookupCount)
	}
	return s
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	t.data.TerminationReason = reason
	s := t.snapshotLocked()
	t.mu.Unlock()

	jsonData, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// LogProgress summarizes the counters in one line.
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Classified: %d (%d phishing, %d legitimate, %d failed) | Pages: %d fetched, %d failed | WHOIS: %d found, %d failed",
		t.data.Classifications,
		t.data.Phishing,
		t.data.Legitimate,
		t.data.Failures,
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.RecordsFound,
		t.data.RecordsFailed,
	)
}
