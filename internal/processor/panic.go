package processor

import (
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// AllNotesOff returns a note off message for every given key, in order.
func AllNotesOff(keys []Key) []midi.Message {
	msgs := make([]midi.Message, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, midi.NoteOff(k.Channel, k.Note))
	}
	return msgs
}

// PanicKeys returns every key the file ever starts, sorted.
// Sending AllNotesOff for these silences anything the file may have left sounding.
func PanicKeys(mid *smf.SMF) ([]Key, error) {
	tracker := NewNoteTracker(false)
	err := ForEachEventWithTime(mid, func(tick int64, track int, msg smf.Message) error {
		var ch, note uint8
		if msg.GetNoteStart(&ch, &note, nil) {
			tracker.Handle(midi.Message(msg))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracker.NotesPlaying(), nil
}
