package processor

import (
	"slices"

	"gitlab.com/gomidi/midi/v2/smf"
)

func sortNoteOffFirst(mid *smf.SMF) error {
	for _, t := range mid.Tracks {
		sortNoteOffFirstTrack(t)
	}
	return nil
}

func noteEndFirst(a, b smf.Event) int {
	aOff := a.Message.GetNoteEnd(nil, nil)
	bOff := b.Message.GetNoteEnd(nil, nil)
	switch {
	case aOff && !bOff:
		return -1
	case bOff && !aOff:
		return 1
	}
	return 0
}

// sortNoteOffFirstTrack reorders events at the same tick so note ends come first.
// The end of track marker stays last.
func sortNoteOffFirstTrack(track smf.Track) {
	fixup := func(begin, end int) {
		if end <= begin+1 {
			return
		}
		delta := track[begin].Delta
		slices.SortStableFunc(track[begin:end], noteEndFirst)
		track[begin].Delta = delta
		for i := begin + 1; i < end; i++ {
			track[i].Delta = 0
		}
	}

	begin := 0
	for i, ev := range track {
		if ev.Delta != 0 {
			fixup(begin, i)
			begin = i
		}
	}
	fixup(begin, len(track))
}
