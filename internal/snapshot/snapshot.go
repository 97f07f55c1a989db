package snapshot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rider is one rider row from the upstream status feed.
type Rider struct {
	Name           string
	Completed      int
	AcceptanceRate decimal.Decimal
}

// Snapshot is one point-in-time status payload. A snapshot is either ok
// (numeric fields populated, Err empty) or errored (Err carries the reason
// and the numeric fields are zero); never both.
type Snapshot struct {
	Score           int
	Completed       int
	AcceptanceRate  decimal.Decimal
	EstimatedIncome *int64
	Riders          []Rider
	Timestamp       time.Time
	FetchedAt       time.Time
	Err             string
}

// Errored builds an error-tagged snapshot carrying only the failure reason.
func Errored(reason string, fetchedAt time.Time) Snapshot {
	return Snapshot{Err: reason, FetchedAt: fetchedAt}
}

// OK reports whether the snapshot carries usable numeric data.
func (s Snapshot) OK() bool {
	return s.Err == ""
}

// ActiveRiders returns riders with at least one completed mission.
func (s Snapshot) ActiveRiders() []Rider {
	active := make([]Rider, 0, len(s.Riders))
	for _, r := range s.Riders {
		if r.Completed > 0 {
			active = append(active, r)
		}
	}
	return active
}

// ActiveRiderCount counts riders with at least one completed mission.
func (s Snapshot) ActiveRiderCount() int {
	count := 0
	for _, r := range s.Riders {
		if r.Completed > 0 {
			count++
		}
	}
	return count
}
