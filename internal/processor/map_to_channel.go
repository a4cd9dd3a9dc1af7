package processor

import (
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Transform rewrites a message. Returning nil drops it.
type Transform func(msg midi.Message) midi.Message

// MapToChannel returns a transform moving channel messages to ch.
// ch 255 keeps the channel.
func MapToChannel(ch uint8) Transform {
	if ch == 255 {
		return nil
	}
	return func(msg midi.Message) midi.Message {
		var evCh uint8
		if !msg.GetChannel(&evCh) {
			return msg
		}
		newMsg := append(midi.Message(nil), msg...)
		newMsg[0] += ch - evCh
		return newMsg
	}
}

// Transpose returns a transform shifting note and polyphonic aftertouch keys by offset.
// Notes shifted out of range are dropped.
func Transpose(offset int) Transform {
	if offset == 0 {
		return nil
	}
	return func(msg midi.Message) midi.Message {
		if !msg.IsOneOf(midi.NoteOnMsg, midi.NoteOffMsg, midi.PolyAfterTouchMsg) {
			return msg
		}
		key := int(msg[1]) + offset
		if key < 0 || key > 127 {
			return nil
		}
		newMsg := append(midi.Message(nil), msg...)
		newMsg[1] = uint8(key)
		return newMsg
	}
}

// Chain applies transforms in order, skipping nil ones.
// It returns nil if there is nothing to do.
func Chain(ts ...Transform) Transform {
	var active []Transform
	for _, t := range ts {
		if t != nil {
			active = append(active, t)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(msg midi.Message) midi.Message {
		for _, t := range active {
			msg = t(msg)
			if msg == nil {
				return nil
			}
		}
		return msg
	}
}

// transposeFile applies Transpose to every event of the file.
func transposeFile(mid *smf.SMF, offset int) error {
	t := Transpose(offset)
	if t == nil {
		return nil
	}
	return rebuild(mid, func(tick int64, track int, msg smf.Message) ([]smf.Message, error) {
		out := t(midi.Message(msg))
		if out == nil {
			return nil, nil
		}
		return []smf.Message{smf.Message(out)}, nil
	})
}
