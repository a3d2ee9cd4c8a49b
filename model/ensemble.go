// Package model holds the boosted-tree classifier: its artifact format, and
// inference over feature vectors.
package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Format identifies the artifact layout this package reads and writes.
const Format = "phishguard-gbdt/1"

var (
	// ErrWidthMismatch means a vector of the wrong length reached Predict.
	// It is a programming error, never a property of the input URL.
	ErrWidthMismatch = errors.New("feature vector width mismatch")
	// ErrIncompatible means an artifact cannot serve this build.
	ErrIncompatible = errors.New("incompatible model artifact")
)

// Ensemble is a binary gradient-boosted tree model. The raw score is
// InitScore + LearningRate * sum(tree outputs), the log-odds of class index 1.
//
// Labels maps each class index to its meaning. It is written by the trainer,
// never inferred here, because class indices depend on the training data.
//
// An Ensemble is immutable after Load and safe for concurrent use.
type Ensemble struct {
	Format       string          `json:"format"`
	FeatureNames []string        `json:"feature_names"`
	Classes      []int           `json:"classes"`
	Labels       []Label         `json:"labels"`
	InitScore    float64         `json:"init_score"`
	LearningRate float64         `json:"learning_rate"`
	Trees        []Tree          `json:"trees"`
	TrainedAt    time.Time       `json:"trained_at"`
	Report       *TrainingReport `json:"report,omitempty"`
}

// TrainingReport records how the artifact was produced.
type TrainingReport struct {
	Dataset       string    `json:"dataset"`
	TrainRows     int       `json:"train_rows"`
	TestRows      int       `json:"test_rows"`
	TrainAccuracy float64   `json:"train_accuracy"`
	TestAccuracy  float64   `json:"test_accuracy"`
	Confusion     Confusion `json:"confusion"`
	Estimators    int       `json:"estimators"`
	MaxDepth      int       `json:"max_depth"`
	TestFraction  float64   `json:"test_fraction"`
	Seed          int64     `json:"seed"`
}

// Confusion counts held-out predictions per (actual, predicted) label.
type Confusion struct {
	TruePhishing    int `json:"true_phishing"`
	FalsePhishing   int `json:"false_phishing"`
	TrueLegitimate  int `json:"true_legitimate"`
	FalseLegitimate int `json:"false_legitimate"`
}

// Prediction is the verdict for one vector.
type Prediction struct {
	Index       int     `json:"class_index"`
	Class       int     `json:"class"`
	Label       Label   `json:"label"`
	Probability float64 `json:"probability"`
}

// Width is the vector length the model was trained on.
func (e *Ensemble) Width() int {
	return len(e.FeatureNames)
}

// Decision returns the raw log-odds score of class index 1.
func (e *Ensemble) Decision(x []float64) float64 {
	sum := 0.0
	for i := range e.Trees {
		sum += e.Trees[i].Predict(x)
	}
	return e.InitScore + e.LearningRate*sum
}

// Predict classifies one vector. Class index 1 wins only when its
// probability is strictly above one half.
func (e *Ensemble) Predict(x []float64) (Prediction, error) {
	if len(x) != e.Width() {
		return Prediction{}, fmt.Errorf("%w: got %d, model expects %d", ErrWidthMismatch, len(x), e.Width())
	}

	p1 := sigmoid(e.Decision(x))
	idx, p := 0, 1-p1
	if p1 > 0.5 {
		idx, p = 1, p1
	}

	return Prediction{
		Index:       idx,
		Class:       e.Classes[idx],
		Label:       e.Labels[idx],
		Probability: p,
	}, nil
}

// LabelProbability returns the probability the model assigns to label.
func (e *Ensemble) LabelProbability(x []float64, label Label) (float64, error) {
	if len(x) != e.Width() {
		return 0, fmt.Errorf("%w: got %d, model expects %d", ErrWidthMismatch, len(x), e.Width())
	}
	p1 := sigmoid(e.Decision(x))
	if e.Labels[1] == label {
		return p1, nil
	}
	if e.Labels[0] == label {
		return 1 - p1, nil
	}
	return 0, fmt.Errorf("label %q not in model", label)
}

// Validate checks the artifact against the vector width of this build.
func (e *Ensemble) Validate(width int) error {
	if e.Format != Format {
		return fmt.Errorf("%w: format %q, want %q", ErrIncompatible, e.Format, Format)
	}
	if e.Width() != width {
		return fmt.Errorf("%w: trained on %d features, this build extracts %d", ErrIncompatible, e.Width(), width)
	}
	if len(e.Classes) != 2 || len(e.Labels) != 2 {
		return fmt.Errorf("%w: want 2 classes, have %d classes and %d labels", ErrIncompatible, len(e.Classes), len(e.Labels))
	}
	if !e.Labels[0].Valid() || !e.Labels[1].Valid() || e.Labels[0] == e.Labels[1] {
		return fmt.Errorf("%w: class labels %v must be phishing and legitimate", ErrIncompatible, e.Labels)
	}
	if e.LearningRate <= 0 || math.IsNaN(e.InitScore) || math.IsInf(e.InitScore, 0) {
		return fmt.Errorf("%w: invalid learning rate %v or init score %v", ErrIncompatible, e.LearningRate, e.InitScore)
	}
	if len(e.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrIncompatible)
	}
	for i := range e.Trees {
		if err := e.Trees[i].validate(width); err != nil {
			return fmt.Errorf("%w: tree %d: %v", ErrIncompatible, i, err)
		}
	}
	return nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
