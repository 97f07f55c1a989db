package snapshot

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func baseSnapshot() Snapshot {
	return Snapshot{
		Score:          92,
		Completed:      156,
		AcceptanceRate: decimal.NewFromFloat(92.9),
		Riders: []Rider{
			{Name: "김철수", Completed: 5, AcceptanceRate: decimal.NewFromInt(90)},
			{Name: "홍길동", Completed: 0, AcceptanceRate: decimal.NewFromInt(80)},
		},
		Timestamp: time.Now(),
		FetchedAt: time.Now(),
	}
}

func TestStoreFirstIngestAlwaysChanged(t *testing.T) {
	st := NewStore()
	if !st.Ingest(baseSnapshot()) {
		t.Fatal("first ingest must report changed")
	}
	if _, ok := st.Current(); !ok {
		t.Fatal("first ingest must adopt the candidate")
	}
}

func TestStoreRiderDetailDoesNotFlipVerdict(t *testing.T) {
	st := NewStore()
	s1 := baseSnapshot()
	st.Ingest(s1)

	// Same score/completed/active-rider count, different rider detail.
	s2 := baseSnapshot()
	s2.Riders[0].Name = "박영희"
	s2.Riders[0].AcceptanceRate = decimal.NewFromFloat(77.7)

	if st.Ingest(s2) {
		t.Fatal("rider-level detail alone must not report changed")
	}

	current, ok := st.Current()
	if !ok {
		t.Fatal("store should hold a snapshot")
	}
	if current.Riders[0].Name != "박영희" {
		t.Fatalf("store must adopt the candidate even when unchanged, got rider %q", current.Riders[0].Name)
	}
}

func TestStoreChangedOnGatingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"score", func(s *Snapshot) { s.Score++ }},
		{"completed", func(s *Snapshot) { s.Completed++ }},
		{"active riders", func(s *Snapshot) { s.Riders[1].Completed = 3 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := NewStore()
			st.Ingest(baseSnapshot())

			next := baseSnapshot()
			tc.mutate(&next)
			if !st.Ingest(next) {
				t.Fatalf("%s difference must report changed", tc.name)
			}
		})
	}
}

func TestStoreAdoptsErrorSnapshot(t *testing.T) {
	st := NewStore()
	st.Ingest(baseSnapshot())

	errored := Errored("수집 실패", time.Now())
	st.Ingest(errored)

	current, ok := st.Current()
	if !ok {
		t.Fatal("store should hold a snapshot")
	}
	if current.OK() {
		t.Fatal("error snapshot must be stored as-is")
	}
	if current.Err != "수집 실패" {
		t.Fatalf("unexpected error reason %q", current.Err)
	}
}

func TestActiveRiderCount(t *testing.T) {
	s := baseSnapshot()
	if got := s.ActiveRiderCount(); got != 1 {
		t.Fatalf("expected 1 active rider, got %d", got)
	}
	if got := len(s.ActiveRiders()); got != 1 {
		t.Fatalf("expected 1 active rider slice entry, got %d", got)
	}
}
