package trainer

import (
	"fmt"

	"phishguard/model"
)

// Evaluate scores e on labelled rows and returns the accuracy together with
// the confusion counts.
func Evaluate(e *model.Ensemble, rows []Row) (float64, model.Confusion, error) {
	var c model.Confusion
	if len(rows) == 0 {
		return 0, c, nil
	}

	correct := 0
	for _, r := range rows {
		p, err := e.Predict(r.Features)
		if err != nil {
			return 0, c, fmt.Errorf("row %q: %w", r.ID, err)
		}
		actual := ClassLabels[r.Class]
		switch {
		case actual == model.Phishing && p.Label == model.Phishing:
			c.TruePhishing++
		case actual == model.Legitimate && p.Label == model.Phishing:
			c.FalsePhishing++
		case actual == model.Legitimate && p.Label == model.Legitimate:
			c.TrueLegitimate++
		default:
			c.FalseLegitimate++
		}
		if actual == p.Label {
			correct++
		}
	}

	return float64(correct) / float64(len(rows)), c, nil
}
