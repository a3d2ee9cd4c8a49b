package storage

import (
	"time"

	"github.com/google/uuid"
)

// Scan is one stored classification.
type Scan struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	Label       string    `json:"label"`
	RiskLevel   string    `json:"risk_level"`
	Probability float64   `json:"probability"`
	Features    []float64 `json:"features"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
