package processor

import (
	"errors"

	"gitlab.com/gomidi/midi/v2/smf"
)

// StopIteration can be returned to return without failure.
var StopIteration = errors.New("ForEachEventWithTime: StopIteration")

// ForEachEventWithTime runs the given function for each event of all tracks merged, in absolute tick order.
// At equal ticks, note ends come before anything else, so a repeated note is released before it restarts.
// End of track events are not reported.
func ForEachEventWithTime(mid *smf.SMF, yield func(tick int64, track int, msg smf.Message) error) error {
	// trackPos is the index of the NEXT event from each track.
	trackPos := make([]int, len(mid.Tracks))
	// trackTick is the tick of the LAST event from each track.
	trackTick := make([]int64, len(mid.Tracks))
	for {
		best := -1
		var bestTick int64
		var bestNoteEnd bool
		for i, t := range mid.Tracks {
			p := trackPos[i]
			if p >= len(t) {
				continue
			}
			tick := trackTick[i] + int64(t[p].Delta)
			noteEnd := t[p].Message.GetNoteEnd(nil, nil)
			if best < 0 || tick < bestTick || (tick == bestTick && noteEnd && !bestNoteEnd) {
				best, bestTick, bestNoteEnd = i, tick, noteEnd
			}
		}
		if best < 0 {
			return nil
		}
		msg := mid.Tracks[best][trackPos[best]].Message
		trackPos[best]++
		trackTick[best] = bestTick
		if msg.Is(smf.MetaEndOfTrackMsg) {
			continue
		}
		err := yield(bestTick, best, msg)
		if errors.Is(err, StopIteration) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// rebuild runs yield over all events and collects the messages it returns back into tracks with fresh deltas.
// Returning a nil message drops the event. Track count stays the same.
func rebuild(mid *smf.SMF, yield func(tick int64, track int, msg smf.Message) ([]smf.Message, error)) error {
	tracks := make([]smf.Track, len(mid.Tracks))
	trackTick := make([]int64, len(mid.Tracks))
	err := ForEachEventWithTime(mid, func(tick int64, track int, msg smf.Message) error {
		out, err := yield(tick, track, msg)
		if err != nil {
			return err
		}
		for _, m := range out {
			if m == nil {
				continue
			}
			tracks[track] = append(tracks[track], smf.Event{
				Delta:   uint32(tick - trackTick[track]),
				Message: m,
			})
			trackTick[track] = tick
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i := range tracks {
		tracks[i].Close(0)
	}
	mid.Tracks = tracks
	return nil
}
