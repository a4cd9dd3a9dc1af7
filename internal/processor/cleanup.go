package processor

import (
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// keepChannels drops channel messages on channels not in chs.
// Meta messages are always kept, as they carry the tempo map.
func keepChannels(mid *smf.SMF, chs []uint8) error {
	if len(chs) == 0 {
		return nil
	}
	return rebuild(mid, func(tick int64, track int, msg smf.Message) ([]smf.Message, error) {
		var ch uint8
		if msg.GetChannel(&ch) && !slices.Contains(chs, ch) {
			return nil, nil
		}
		return []smf.Message{msg}, nil
	})
}

// removeUnneededEvents removes events the prediction does not care about.
// Only notes and tempo changes survive.
func removeUnneededEvents(mid *smf.SMF) error {
	return rebuild(mid, func(tick int64, track int, msg smf.Message) ([]smf.Message, error) {
		if msg.IsOneOf(midi.NoteOnMsg, midi.NoteOffMsg, smf.MetaTempoMsg) {
			return []smf.Message{msg}, nil
		}
		return nil, nil
	})
}

// removeRedundantNoteEvents removes note starts of already sounding notes and note ends of silent ones.
// A restarted note gets an explicit note end first, so every start in the result has exactly one end.
func removeRedundantNoteEvents(mid *smf.SMF) error {
	tracker := NewNoteTracker(false)
	return rebuild(mid, func(tick int64, track int, msg smf.Message) ([]smf.Message, error) {
		var ch, note uint8
		if msg.GetNoteStart(&ch, &note, nil) && tracker.NotePlaying(Key{ch, note}) {
			tracker.Handle(midi.Message(msg))
			return []smf.Message{smf.Message(midi.NoteOff(ch, note)), msg}, nil
		}
		if !tracker.Handle(midi.Message(msg)) {
			return nil, nil
		}
		return []smf.Message{msg}, nil
	})
}

// closeHangingNotes adds note ends at the last tick for notes the file never ends.
func closeHangingNotes(mid *smf.SMF) error {
	if len(mid.Tracks) == 0 {
		return nil
	}
	tracker := NewNoteTracker(false)
	var last int64
	err := ForEachEventWithTime(mid, func(tick int64, track int, msg smf.Message) error {
		tracker.Handle(midi.Message(msg))
		last = tick
		return nil
	})
	if err != nil {
		return err
	}
	if !tracker.Playing() {
		return nil
	}
	t := &mid.Tracks[0]
	// Drop the end of track marker, append the note ends, then close again.
	var tick int64
	var kept smf.Track
	for _, ev := range *t {
		tick += int64(ev.Delta)
		if ev.Message.Is(smf.MetaEndOfTrackMsg) {
			continue
		}
		kept = append(kept, ev)
	}
	delta := uint32(last - tick)
	for _, msg := range AllNotesOff(tracker.NotesPlaying()) {
		kept = append(kept, smf.Event{Delta: delta, Message: smf.Message(msg)})
		delta = 0
	}
	kept.Close(0)
	*t = kept
	return nil
}
