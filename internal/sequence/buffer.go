// Package sequence holds timed MIDI events in sample units.
package sequence

import (
	"sort"

	"gitlab.com/gomidi/midi/v2"

	"github.com/divVerent/midipredict/internal/processor"
)

// Event is a MIDI message at a time in samples.
// Whether Time is absolute or block relative depends on the container.
type Event struct {
	Time    int64
	Message midi.Message
}

// Buffer is an ordered collection of events, usually for one block.
// Events are kept sorted by time; events at equal times keep insertion order.
type Buffer struct {
	events []Event
}

// NewBuffer returns an empty buffer with room for capacity events.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{events: make([]Event, 0, capacity)}
}

// Add inserts msg at time t, after any events already at t.
// The message is stored as is and must not be modified afterwards.
func (b *Buffer) Add(t int64, msg midi.Message) {
	n := len(b.events)
	if n == 0 || b.events[n-1].Time <= t {
		b.events = append(b.events, Event{Time: t, Message: msg})
		return
	}
	i := sort.Search(n, func(i int) bool {
		return b.events[i].Time > t
	})
	b.events = append(b.events, Event{})
	copy(b.events[i+1:], b.events[i:n])
	b.events[i] = Event{Time: t, Message: msg}
}

func (b *Buffer) Len() int {
	return len(b.events)
}

func (b *Buffer) At(i int) Event {
	return b.events[i]
}

// Events returns the events in order. The slice is only valid until the next modification.
func (b *Buffer) Events() []Event {
	return b.events
}

// Clear removes all events but keeps the storage.
func (b *Buffer) Clear() {
	clear(b.events)
	b.events = b.events[:0]
}

// Swap exchanges the contents of two buffers.
func (b *Buffer) Swap(o *Buffer) {
	b.events, o.events = o.events, b.events
}

// Merge adds the events of src that fall in [start, start+length), moved so that start becomes 0.
// A negative length merges everything from start on.
// If transform is set, it is applied to each message; messages it drops are skipped.
func (b *Buffer) Merge(src *Buffer, start, length int64, transform processor.Transform) {
	for _, ev := range src.events {
		if ev.Time < start {
			continue
		}
		if length >= 0 && ev.Time >= start+length {
			break
		}
		msg := ev.Message
		if transform != nil {
			msg = transform(msg)
			if msg == nil {
				continue
			}
		}
		b.Add(ev.Time-start, msg)
	}
}

// CountNoteStarts returns how many note on events with nonzero velocity the buffer holds.
func (b *Buffer) CountNoteStarts() int {
	n := 0
	var ch, key uint8
	for _, ev := range b.events {
		if ev.Message.GetNoteStart(&ch, &key, nil) {
			n++
		}
	}
	return n
}
