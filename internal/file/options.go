package file

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/midipredict/internal/processor"
)

const (
	DefaultSampleRate = 48000
	DefaultBlockSize  = 512
)

// Options describe one session: what to follow, what to play along, and where results go.
// File names are relative to the file system the options were read from.
type Options struct {
	// Reference is the MIDI file to follow.
	Reference string `yaml:"reference"`

	// ReferenceSHA256 is the expected checksum of Reference. Filled in on first load when empty.
	ReferenceSHA256 string `yaml:"reference_sha256,omitempty"`

	// Prepare controls how the reference is reduced before playing.
	Prepare processor.Options `yaml:"prepare,omitempty"`

	// Live is a MIDI file with a recorded performance to simulate. Empty replays the reference itself.
	Live string `yaml:"live,omitempty"`

	// LivePrepare controls how the live file is reduced.
	LivePrepare processor.Options `yaml:"live_prepare,omitempty"`

	// InPort and OutPort name the preferred MIDI ports of the live player.
	InPort  string `yaml:"in_port,omitempty"`
	OutPort string `yaml:"out_port,omitempty"`

	SampleRate int `yaml:"sample_rate,omitempty"`
	BlockSize  int `yaml:"block_size,omitempty"`

	// OutputMIDI and OutputWAV receive the delayed prediction and the synthesized audio of a simulation.
	OutputMIDI string `yaml:"output_midi,omitempty"`
	OutputWAV  string `yaml:"output_wav,omitempty"`
}

// WithDefaults returns a copy of o with unset audio parameters filled in.
func (o *Options) WithDefaults() *Options {
	merged := processor.Merge(Options{
		SampleRate: DefaultSampleRate,
		BlockSize:  DefaultBlockSize,
	}, *o)
	return &merged
}

func (o *Options) Validate() error {
	if o.Reference == "" {
		return fmt.Errorf("no reference file given")
	}
	if o.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %v", o.SampleRate)
	}
	if o.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %v", o.BlockSize)
	}
	return nil
}

func ReadOptions(fsys fs.FS, optionsFile string) (*Options, error) {
	f, err := fsys.Open(optionsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", optionsFile, err)
	}
	defer f.Close()
	var options Options
	err = yaml.NewDecoder(f).Decode(&options)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", optionsFile, err)
	}
	return &options, nil
}

func WriteOptions(optionsFile string, options *Options) (err error) {
	f, err := os.Create(optionsFile)
	if err != nil {
		return fmt.Errorf("could not recreate %v: %w", optionsFile, err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2) // Match yq.
	err = enc.Encode(options)
	if err != nil {
		return fmt.Errorf("could not encode %v: %w", optionsFile, err)
	}
	return enc.Close()
}
