package schedule

import "sync/atomic"

// Holder publishes the current Store to concurrent readers. Refreshes
// build a fresh immutable Store and Swap it in; queries always run against
// a single consistent snapshot.
type Holder struct {
	current atomic.Pointer[Store]
}

func NewHolder(initial *Store) *Holder {
	h := &Holder{}
	if initial == nil {
		initial = NewStore()
	}
	h.current.Store(initial)
	return h
}

func (h *Holder) Current() *Store {
	return h.current.Load()
}

func (h *Holder) Swap(next *Store) {
	if next == nil {
		return
	}
	h.current.Store(next)
}
