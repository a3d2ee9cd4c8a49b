package trainer

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"phishguard/features"
	"phishguard/model"
)

// Report summarizes a training run. It is embedded in the artifact.
type Report = model.TrainingReport

// Train loads the dataset at path, fits an ensemble on the training split
// and evaluates it on both partitions.
func Train(path string, opts Options) (*model.Ensemble, Report, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, Report{}, err
	}

	ds, err := LoadDataset(path)
	if err != nil {
		return nil, Report{}, err
	}
	warnHeaderDrift(ds.Columns)

	train, test, err := Split(ds.Rows, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, Report{}, err
	}
	logrus.Infof("[TRAIN] %s: %d rows, %d train / %d test (seed %d)", path, ds.Len(), len(train), len(test), opts.Seed)

	start := time.Now()
	ens, err := Fit(train, opts)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to fit ensemble: %w", err)
	}
	logrus.Infof("[TRAIN] fitted %d trees in %v", len(ens.Trees), time.Since(start).Round(time.Millisecond))

	trainAcc, _, err := Evaluate(ens, train)
	if err != nil {
		return nil, Report{}, err
	}
	testAcc, confusion, err := Evaluate(ens, test)
	if err != nil {
		return nil, Report{}, err
	}

	report := Report{
		Dataset:       path,
		TrainRows:     len(train),
		TestRows:      len(test),
		TrainAccuracy: trainAcc,
		TestAccuracy:  testAcc,
		Confusion:     confusion,
		Estimators:    opts.Estimators,
		MaxDepth:      opts.MaxDepth,
		TestFraction:  opts.TestFraction,
		Seed:          opts.Seed,
	}
	ens.Report = &report

	logrus.Infof("[TRAIN] accuracy train=%.4f test=%.4f", trainAcc, testAcc)
	logrus.Infof("[TRAIN] confusion %+v", confusion)
	return ens, report, nil
}

// warnHeaderDrift flags datasets whose column names disagree with the
// extraction order. Columns are positional, so a mismatch is only reported.
func warnHeaderDrift(columns []string) {
	for i, name := range features.Names() {
		if i < len(columns) && !strings.EqualFold(strings.TrimSpace(columns[i]), name) {
			logrus.Warnf("[TRAIN] column %d is %q, extraction produces %q", i+1, columns[i], name)
		}
	}
}
