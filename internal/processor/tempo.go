package processor

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultBPM is the tempo a file without tempo events plays at.
const DefaultBPM = 120.0

func hasInitialTempo(mid *smf.SMF) bool {
	found := false
	ForEachEventWithTime(mid, func(tick int64, track int, msg smf.Message) error {
		if tick > 0 {
			return StopIteration
		}
		if msg.Is(smf.MetaTempoMsg) {
			found = true
			return StopIteration
		}
		return nil
	})
	return found
}

// adjustTempo multiplies every tempo of the file by factor.
// A file that sets no tempo at its start gets one, so that factor also applies there.
func adjustTempo(mid *smf.SMF, factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("tempo factor must be positive, got %v", factor)
	}
	if len(mid.Tracks) == 0 {
		return nil
	}
	initial := hasInitialTempo(mid)
	err := rebuild(mid, func(tick int64, track int, msg smf.Message) ([]smf.Message, error) {
		var bpm float64
		if msg.GetMetaTempo(&bpm) {
			return []smf.Message{smf.MetaTempo(bpm * factor)}, nil
		}
		return []smf.Message{msg}, nil
	})
	if err != nil {
		return err
	}
	if !initial {
		mid.Tracks[0] = append(smf.Track{{Delta: 0, Message: smf.MetaTempo(DefaultBPM * factor)}}, mid.Tracks[0]...)
	}
	return nil
}
