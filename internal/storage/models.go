package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Sample status values.
const (
	SampleComplete = "complete"
	SampleErrored  = "errored"
)

// StatusSample is one persisted observation of the dashboard feed.
type StatusSample struct {
	Bucket         time.Time
	TotalScore     int
	TotalCompleted int
	AcceptancePct  decimal.Decimal
	ActiveRiders   int
	Riders         json.RawMessage
	Status         string
	Error          *string
	CreatedAt      time.Time
}
