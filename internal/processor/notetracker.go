package processor

import (
	"slices"

	"gitlab.com/gomidi/midi/v2"
)

// Key identifies a sounding note.
type Key struct {
	Channel, Note uint8
}

func compareKeys(a, b Key) int {
	if a.Channel != b.Channel {
		return int(a.Channel) - int(b.Channel)
	}
	return int(a.Note) - int(b.Note)
}

// NoteTracker keeps track of which notes are currently sounding.
// With refcounting, a note started twice needs two ends to stop.
type NoteTracker struct {
	refcounting bool
	activeNotes map[Key]int
}

func NewNoteTracker(refcounting bool) *NoteTracker {
	return &NoteTracker{
		refcounting: refcounting,
		activeNotes: map[Key]int{},
	}
}

func (t *NoteTracker) Playing() bool {
	return len(t.activeNotes) > 0
}

func (t *NoteTracker) NotePlaying(k Key) bool {
	return t.activeNotes[k] > 0
}

// NotesPlaying returns the sounding notes sorted by channel and note.
func (t *NoteTracker) NotesPlaying() []Key {
	keys := make([]Key, 0, len(t.activeNotes))
	for k := range t.activeNotes {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Handle updates the tracker with msg.
// It returns false if msg is redundant, i.e. starts an already sounding note or ends a silent one.
func (t *NoteTracker) Handle(msg midi.Message) bool {
	var ch, note uint8
	if msg.GetNoteStart(&ch, &note, nil) {
		k := Key{ch, note}
		result := t.activeNotes[k] == 0
		if t.refcounting {
			t.activeNotes[k]++
		} else {
			t.activeNotes[k] = 1
		}
		return result
	}
	if msg.GetNoteEnd(&ch, &note) {
		k := Key{ch, note}
		n := t.activeNotes[k]
		if n == 0 {
			return false
		}
		if t.refcounting && n > 1 {
			t.activeNotes[k] = n - 1
			return false
		}
		delete(t.activeNotes, k)
		return true
	}
	return true
}

// Reset forgets all notes.
func (t *NoteTracker) Reset() {
	clear(t.activeNotes)
}
