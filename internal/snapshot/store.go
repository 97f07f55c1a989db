package snapshot

import "sync"

// Store holds the last ingested snapshot and computes the changed verdict.
// The verdict gates re-render and notification work only; the candidate is
// adopted either way so error states and rider-level detail stay current.
type Store struct {
	mu      sync.Mutex
	current *Snapshot
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Ingest adopts candidate as the current snapshot and reports whether it
// materially differs from the previous one. The first ingest always reports
// true. Subsequent ingests compare only score, completed count, and the
// active-rider count; rider-level detail alone never flips the verdict.
func (st *Store) Ingest(candidate Snapshot) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	prev := st.current
	st.current = &candidate

	if prev == nil {
		return true
	}
	return prev.Score != candidate.Score ||
		prev.Completed != candidate.Completed ||
		prev.ActiveRiderCount() != candidate.ActiveRiderCount()
}

// Current returns the held snapshot, if any.
func (st *Store) Current() (Snapshot, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.current == nil {
		return Snapshot{}, false
	}
	return *st.current, true
}
