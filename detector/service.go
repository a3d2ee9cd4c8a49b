// Package detector classifies URLs end to end: evidence collection, feature
// extraction and prediction, plus the HTTP API in front of it.
package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"phishguard/evidence"
	"phishguard/features"
	"phishguard/metrics"
	"phishguard/model"
	"phishguard/storage"
)

var (
	// ErrEmptyURL is returned for blank input. Extraction never runs on it.
	ErrEmptyURL = errors.New("url is required")
	// ErrBatchTooLarge is returned when a batch exceeds the configured limit.
	ErrBatchTooLarge = errors.New("too many urls in batch")
)

// RiskLevel is the display string for a label.
type RiskLevel string

const (
	HighRisk RiskLevel = "High Risk"
	LowRisk  RiskLevel = "Low Risk"
)

// RiskFor maps a label to its risk level.
func RiskFor(label model.Label) RiskLevel {
	if label == model.Phishing {
		return HighRisk
	}
	return LowRisk
}

// Result is the outcome of classifying one URL.
type Result struct {
	ID          string           `json:"id,omitempty"`
	URL         string           `json:"url"`
	Label       model.Label      `json:"label,omitempty"`
	RiskLevel   RiskLevel        `json:"risk_level,omitempty"`
	Probability float64          `json:"probability,omitempty"`
	Features    []features.Value `json:"features,omitempty"` // vector order
	DurationMs  int64            `json:"duration_ms"`
	Timestamp   string           `json:"timestamp"`
	Error       string           `json:"error,omitempty"`
}

// Options tunes batch classification.
type Options struct {
	BatchLimit       int
	BatchConcurrency int
}

// Service runs classifications. It is safe for concurrent use.
type Service struct {
	collector *evidence.Collector
	model     *model.Ensemble
	history   *storage.Storage
	tracker   *metrics.Tracker
	opts      Options
}

// NewService wires a service. history may be nil to disable persistence.
func NewService(collector *evidence.Collector, ens *model.Ensemble, history *storage.Storage, tracker *metrics.Tracker, opts Options) *Service {
	if opts.BatchLimit < 1 {
		opts.BatchLimit = 20
	}
	if opts.BatchConcurrency < 1 {
		opts.BatchConcurrency = 4
	}
	if tracker == nil {
		tracker = metrics.NewTracker()
	}
	return &Service{
		collector: collector,
		model:     ens,
		history:   history,
		tracker:   tracker,
		opts:      opts,
	}
}

// Classify labels one URL. Unavailable evidence only moves the signals that
// depend on it to their fallbacks. Blank input and a model that does not fit
// the extracted vector are the only errors.
func (s *Service) Classify(ctx context.Context, rawURL string) (Result, error) {
	input := strings.TrimSpace(rawURL)
	if input == "" {
		return Result{}, ErrEmptyURL
	}

	start := time.Now()
	ev := s.collector.Collect(ctx, input)
	vec := features.Extract(ev)

	pred, err := s.model.Predict(vec.Slice())
	if err != nil {
		s.tracker.IncrementFailures()
		return Result{}, fmt.Errorf("failed to classify %s: %w", ev.URL, err)
	}
	elapsed := time.Since(start)
	s.tracker.RecordClassification(pred.Label, elapsed)

	id := uuid.New()
	now := time.Now()
	res := Result{
		ID:          id.String(),
		URL:         ev.URL,
		Label:       pred.Label,
		RiskLevel:   RiskFor(pred.Label),
		Probability: pred.Probability,
		Features:    features.Explain(vec),
		DurationMs:  elapsed.Milliseconds(),
		Timestamp:   now.Format(time.RFC3339),
	}

	if s.history != nil {
		scan := &storage.Scan{
			ID:          id,
			URL:         res.URL,
			Label:       string(res.Label),
			RiskLevel:   string(res.RiskLevel),
			Probability: res.Probability,
			Features:    vec.Slice(),
			DurationMs:  res.DurationMs,
			CreatedAt:   now,
		}
		if err := s.history.SaveScan(scan); err != nil {
			logrus.Warnf("[HISTORY] failed to save scan for %s: %v", res.URL, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"url":         res.URL,
		"label":       res.Label,
		"probability": fmt.Sprintf("%.3f", res.Probability),
		"page":        ev.Page.Ok(),
		"whois":       ev.Registration.Ok(),
	}).Infof("[CLASSIFY] %s in %v", res.RiskLevel, elapsed.Round(time.Millisecond))

	return res, nil
}

// ClassifyBatch classifies urls concurrently, bounded by
// Options.BatchConcurrency. Results keep input order; a failed item carries
// its error and never cancels the others.
func (s *Service) ClassifyBatch(ctx context.Context, urls []string) ([]Result, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyURL
	}
	if len(urls) > s.opts.BatchLimit {
		return nil, fmt.Errorf("%w: %d urls, limit is %d", ErrBatchTooLarge, len(urls), s.opts.BatchLimit)
	}

	results := make([]Result, len(urls))
	var g errgroup.Group
	g.SetLimit(s.opts.BatchConcurrency)

	for i, u := range urls {
		g.Go(func() error {
			res, err := s.Classify(ctx, u)
			if err != nil {
				res = Result{
					URL:       strings.TrimSpace(u),
					Timestamp: time.Now().Format(time.RFC3339),
					Error:     err.Error(),
				}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// History returns up to limit recent scans, or none when history is disabled.
func (s *Service) History(limit int) ([]*storage.Scan, error) {
	if s.history == nil {
		return []*storage.Scan{}, nil
	}
	return s.history.RecentScans(limit)
}

// Scan returns one stored scan, or nil when it is unknown or history is
// disabled.
func (s *Service) Scan(id uuid.UUID) (*storage.Scan, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.GetScan(id)
}

// Stats holds the /stats payload.
type Stats struct {
	Metrics metrics.Snapshot `json:"metrics"`
	Stored  map[string]int   `json:"stored,omitempty"`
}

// Stats reports in-process counters and, when enabled, stored label counts.
func (s *Service) Stats() (Stats, error) {
	st := Stats{Metrics: s.tracker.GetSnapshot()}
	if s.history != nil {
		counts, err := s.history.CountByLabel()
		if err != nil {
			return st, err
		}
		st.Stored = counts
	}
	return st, nil
}

// ModelSummary describes the loaded model for health checks.
type ModelSummary struct {
	Format       string    `json:"format"`
	Features     int       `json:"features"`
	Trees        int       `json:"trees"`
	Labels       []string  `json:"labels"`
	TrainedAt    time.Time `json:"trained_at"`
	TestAccuracy *float64  `json:"test_accuracy,omitempty"`
}

// Model summarizes the ensemble in use.
func (s *Service) Model() ModelSummary {
	labels := make([]string, len(s.model.Labels))
	for i, l := range s.model.Labels {
		labels[i] = string(l)
	}
	sum := ModelSummary{
		Format:    s.model.Format,
		Features:  s.model.Width(),
		Trees:     len(s.model.Trees),
		Labels:    labels,
		TrainedAt: s.model.TrainedAt,
	}
	if s.model.Report != nil {
		acc := s.model.Report.TestAccuracy
		sum.TestAccuracy = &acc
	}
	return sum
}
