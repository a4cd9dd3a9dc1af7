package predict

import (
	"github.com/divVerent/midipredict/internal/sequence"
)

// LagRing delays predictions by a fixed number of blocks.
type LagRing struct {
	slots  []*sequence.Buffer
	cursor int
}

// NewLagRing returns a ring delaying by lag blocks, with room for capacity events per slot.
func NewLagRing(lag, capacity int) *LagRing {
	r := &LagRing{slots: make([]*sequence.Buffer, lag)}
	for i := range r.slots {
		r.slots[i] = sequence.NewBuffer(capacity)
	}
	return r
}

// Len returns the delay in blocks.
func (r *LagRing) Len() int {
	return len(r.slots)
}

// Due returns the prediction stored Len blocks ago, or nil if there is no delay.
// It stays valid until the next Store.
func (r *LagRing) Due() *sequence.Buffer {
	if len(r.slots) == 0 {
		return nil
	}
	return r.slots[r.cursor]
}

// Store overwrites the due slot with a copy of fresh and moves on to the next slot.
func (r *LagRing) Store(fresh *sequence.Buffer) {
	if len(r.slots) == 0 {
		return
	}
	slot := r.slots[r.cursor]
	slot.Clear()
	slot.Merge(fresh, 0, -1, nil)
	r.cursor = (r.cursor + 1) % len(r.slots)
}
