package file

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io/fs"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midipredict/internal/processor"
	"github.com/divVerent/midipredict/internal/sequence"
)

// ReadMIDI parses a MIDI file and returns it with its SHA-256 checksum in hex.
// If wantSum is set, a file with a different checksum is rejected.
func ReadMIDI(fsys fs.FS, name, wantSum string) (*smf.SMF, string, error) {
	inBytes, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, "", fmt.Errorf("could not read %v: %w", name, err)
	}

	sum := fmt.Sprintf("%x", sha256.Sum256(inBytes))
	if wantSum != "" && wantSum != sum {
		return nil, "", fmt.Errorf("mismatching checksum of %v: got %v, want %v", name, sum, wantSum)
	}

	mid, err := smf.ReadFrom(bytes.NewReader(inBytes))
	if err != nil {
		return nil, "", fmt.Errorf("could not parse %v: %w", name, err)
	}
	return mid, sum, nil
}

// LoadReference reads and prepares the reference of options at its sample rate.
// An empty options.ReferenceSHA256 is set to the checksum of the file read.
func LoadReference(fsys fs.FS, options *Options) (*sequence.Sequence, error) {
	mid, sum, err := ReadMIDI(fsys, options.Reference, options.ReferenceSHA256)
	if err != nil {
		return nil, err
	}
	seq, err := sequence.FromSMF(mid, float64(options.SampleRate), &options.Prepare)
	if err != nil {
		return nil, fmt.Errorf("could not convert %v: %w", options.Reference, err)
	}
	if options.ReferenceSHA256 == "" {
		options.ReferenceSHA256 = sum
	}
	return seq, nil
}

// LoadLive reads the simulated performance of options.
// Without a live file, the reference is played back as is, using the reference's preparation.
func LoadLive(fsys fs.FS, options *Options) (*sequence.Sequence, error) {
	name, prepare := options.Live, &options.LivePrepare
	if name == "" {
		name, prepare = options.Reference, &options.Prepare
	}
	mid, _, err := ReadMIDI(fsys, name, "")
	if err != nil {
		return nil, err
	}
	seq, err := sequence.FromSMF(mid, float64(options.SampleRate), prepare)
	if err != nil {
		return nil, fmt.Errorf("could not convert %v: %w", name, err)
	}
	return seq, nil
}

// PanicKeys returns every key the reference of options may start, for silencing an output.
func PanicKeys(fsys fs.FS, options *Options) ([]processor.Key, error) {
	mid, _, err := ReadMIDI(fsys, options.Reference, options.ReferenceSHA256)
	if err != nil {
		return nil, err
	}
	prepared, err := processor.Prepare(mid, &options.Prepare)
	if err != nil {
		return nil, fmt.Errorf("could not prepare %v: %w", options.Reference, err)
	}
	return processor.PanicKeys(prepared)
}
