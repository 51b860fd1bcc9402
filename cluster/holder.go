package cluster

import (
	"go.uber.org/atomic"
)

// Holder keeps the current snapshot of a continuously changing cluster.
// Readers get a consistent snapshot with Load and keep using it for the
// duration of one planning call even if Store replaces it meanwhile.
type Holder struct {
	current *atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// NewHolder creates a holder with an initial snapshot, nil means empty.
func NewHolder(initial *Snapshot) *Holder {
	if initial == nil {
		initial = Empty()
	}
	return &Holder{current: atomic.NewPointer(initial)}
}

// Load returns the current snapshot.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Store replaces the current snapshot and returns the new version number.
func (h *Holder) Store(s *Snapshot) uint64 {
	if s == nil {
		s = Empty()
	}
	h.current.Store(s)
	return h.version.Inc()
}

// Version returns how many times the snapshot has been replaced.
func (h *Holder) Version() uint64 {
	return h.version.Load()
}
