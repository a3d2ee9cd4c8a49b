package trainer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"phishguard/features"
	"phishguard/model"
)

// Options controls a training run. Zero fields other than Seed take the
// values of DefaultOptions.
type Options struct {
	Estimators      int
	MaxDepth        int
	LearningRate    float64
	TestFraction    float64
	Seed            int64
	MinSamplesSplit int
}

// DefaultOptions returns the hyperparameters the shipped model is trained with.
func DefaultOptions() Options {
	return Options{
		Estimators:      100,
		MaxDepth:        4,
		LearningRate:    0.7,
		TestFraction:    0.2,
		Seed:            42,
		MinSamplesSplit: 2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Estimators == 0 {
		o.Estimators = d.Estimators
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.LearningRate == 0 {
		o.LearningRate = d.LearningRate
	}
	if o.TestFraction == 0 {
		o.TestFraction = d.TestFraction
	}
	if o.MinSamplesSplit == 0 {
		o.MinSamplesSplit = d.MinSamplesSplit
	}
	return o
}

func (o Options) validate() error {
	if o.Estimators < 1 {
		return fmt.Errorf("estimators must be positive, got %d", o.Estimators)
	}
	if o.MaxDepth < 1 {
		return fmt.Errorf("max depth must be positive, got %d", o.MaxDepth)
	}
	if o.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", o.LearningRate)
	}
	if o.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split must be at least 2, got %d", o.MinSamplesSplit)
	}
	return nil
}

// ErrSingleClass means the training rows do not contain both labels.
var ErrSingleClass = errors.New("training data needs exactly two classes with distinct labels")

// Fit trains a gradient-boosted ensemble with binomial deviance loss. The
// larger of the two class values becomes class index 1, and each index is
// labelled through ClassLabels.
func Fit(rows []Row, opts Options) (*model.Ensemble, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	ds := Dataset{Rows: rows}
	classes := ds.Classes()
	if len(classes) != 2 {
		return nil, fmt.Errorf("%w: found classes %v", ErrSingleClass, classes)
	}
	labels := []model.Label{ClassLabels[classes[0]], ClassLabels[classes[1]]}
	if labels[0] == labels[1] {
		return nil, fmt.Errorf("%w: classes %v both mean %s", ErrSingleClass, classes, labels[0])
	}

	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	positives := 0.0
	for i, r := range rows {
		if len(r.Features) != features.Width {
			return nil, fmt.Errorf("row %q has %d features, want %d", r.ID, len(r.Features), features.Width)
		}
		x[i] = r.Features
		if r.Class == classes[1] {
			y[i] = 1
			positives++
		}
	}

	n := float64(len(rows))
	prior := math.Log(positives / (n - positives))

	raw := make([]float64, len(rows))
	for i := range raw {
		raw[i] = prior
	}
	residual := make([]float64, len(rows))
	hessian := make([]float64, len(rows))

	g := newGrower(x, features.Width, opts.MaxDepth, opts.MinSamplesSplit)
	trees := make([]model.Tree, 0, opts.Estimators)
	for m := 0; m < opts.Estimators; m++ {
		loss := 0.0
		for i := range raw {
			p := sigmoid(raw[i])
			residual[i] = y[i] - p
			hessian[i] = p * (1 - p)
			loss += deviance(y[i], raw[i])
		}

		tree := g.grow(residual, hessian)
		for i := range raw {
			raw[i] += opts.LearningRate * tree.Predict(x[i])
		}
		trees = append(trees, tree)

		if (m+1)%10 == 0 || m == 0 {
			logrus.Debugf("[TRAIN] stage %d/%d deviance=%.6f nodes=%d", m+1, opts.Estimators, loss/n, len(tree.Nodes))
		}
	}

	return &model.Ensemble{
		Format:       model.Format,
		FeatureNames: features.Names(),
		Classes:      classes,
		Labels:       labels,
		InitScore:    prior,
		LearningRate: opts.LearningRate,
		Trees:        trees,
		TrainedAt:    time.Now().UTC(),
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// deviance is the binomial log loss of raw score f against target y.
func deviance(y, f float64) float64 {
	// log(1+exp(f)) - y*f, written to stay finite for large |f|.
	if f > 0 {
		return f + math.Log1p(math.Exp(-f)) - y*f
	}
	return math.Log1p(math.Exp(f)) - y*f
}
