package player

import (
	"slices"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"github.com/divVerent/midipredict/internal/sequence"
)

// Collector gathers live notes between two blocks.
// Receive is called from the MIDI driver, Drain from the audio goroutine.
type Collector struct {
	mu       sync.Mutex
	pending  []midi.Message
	capacity int
	dropped  int
}

func NewCollector(capacity int) *Collector {
	return &Collector{
		pending:  make([]midi.Message, 0, capacity),
		capacity: capacity,
	}
}

// Receive queues a note message. Other messages are ignored; notes beyond capacity are dropped.
// It has the signature midi.ListenTo wants.
func (c *Collector) Receive(msg midi.Message, timestampms int32) {
	if !msg.IsOneOf(midi.NoteOnMsg, midi.NoteOffMsg) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) >= c.capacity {
		c.dropped++
		return
	}
	// The driver may reuse its buffer.
	c.pending = append(c.pending, slices.Clone(msg))
}

// Drain moves everything received so far to the start of block index.
func (c *Collector) Drain(index int, dst *sequence.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range c.pending {
		dst.Add(0, msg)
	}
	clear(c.pending)
	c.pending = c.pending[:0]
}

// Dropped returns how many notes did not fit.
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Reset forgets pending notes.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.pending)
	c.pending = c.pending[:0]
}
