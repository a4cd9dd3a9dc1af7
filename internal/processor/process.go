package processor

import (
	"bytes"
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Options control how a reference file is prepared.
type Options struct {
	// Speed scales the tempo; 2 plays twice as fast. 0 means 1.
	Speed float64 `yaml:"speed,omitempty"`

	// Channels to keep (0-based). Empty keeps all.
	Channels []uint8 `yaml:"channels,omitempty"`

	// Transpose shifts all notes by this many semitones.
	Transpose int `yaml:"transpose,omitempty"`

	// KeepRedundantNotes disables removal of overlapping note starts.
	KeepRedundantNotes bool `yaml:"keep_redundant_notes,omitempty"`
}

// Prepare returns a copy of mid reduced to the notes and tempo map that matter for prediction.
// The input is not modified. The result has its tempo map refreshed, so TimeAt works on it.
func Prepare(mid *smf.SMF, options *Options) (*smf.SMF, error) {
	out := clone(mid)
	err := keepChannels(out, options.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to filter channels: %w", err)
	}
	err = removeUnneededEvents(out)
	if err != nil {
		return nil, fmt.Errorf("failed to remove unneeded events: %w", err)
	}
	err = transposeFile(out, options.Transpose)
	if err != nil {
		return nil, fmt.Errorf("failed to transpose: %w", err)
	}
	if !options.KeepRedundantNotes {
		err = removeRedundantNoteEvents(out)
		if err != nil {
			return nil, fmt.Errorf("failed to remove redundant notes: %w", err)
		}
	}
	err = closeHangingNotes(out)
	if err != nil {
		return nil, fmt.Errorf("failed to close hanging notes: %w", err)
	}
	if options.Speed != 0 && options.Speed != 1 {
		err = adjustTempo(out, options.Speed)
		if err != nil {
			return nil, fmt.Errorf("failed to adjust tempo: %w", err)
		}
	}
	err = sortNoteOffFirst(out)
	if err != nil {
		return nil, fmt.Errorf("failed to sort: %w", err)
	}
	return Reread(out)
}

// Reread writes the file and reads it back.
// This fixes missing tempo change events after editing tracks in memory.
func Reread(mid *smf.SMF) (*smf.SMF, error) {
	var b bytes.Buffer
	_, err := mid.WriteTo(&b)
	if err != nil {
		return nil, fmt.Errorf("cannot rewrite MIDI: %w", err)
	}
	fixed, err := smf.ReadFrom(&b)
	if err != nil {
		return nil, fmt.Errorf("cannot reread MIDI: %w", err)
	}
	return fixed, nil
}

func clone(mid *smf.SMF) *smf.SMF {
	out := *mid
	out.Tracks = make([]smf.Track, len(mid.Tracks))
	for i, t := range mid.Tracks {
		out.Tracks[i] = append(smf.Track(nil), t...)
	}
	return &out
}
