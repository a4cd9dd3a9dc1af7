// Package predict follows a live performance along a reference sequence, one audio block at a time.
package predict

import (
	"fmt"
	"math"

	"github.com/divVerent/midipredict/internal/processor"
)

// Config holds the tuning of the prediction engine.
// Zero values mean the default from DefaultConfig; pointer fields can override with zero.
type Config struct {
	// TimeBetween is how far, in seconds, a live note may lie after a predicted note and still match it.
	TimeBetween float64 `yaml:"time_between,omitempty"`

	// Alpha is the smoothing of the tempo estimate; closer to 1 reacts slower.
	Alpha float64 `yaml:"alpha,omitempty"`

	// DensityWindow is the length in seconds of the note counting window.
	DensityWindow float64 `yaml:"density_window,omitempty"`

	// DensityBlocks sets the window length in blocks directly, overriding DensityWindow.
	DensityBlocks int `yaml:"density_blocks,omitempty"`

	// MinDensity and MaxDensity bound the tempo multiplier.
	MinDensity float64 `yaml:"min_density,omitempty"`
	MaxDensity float64 `yaml:"max_density,omitempty"`

	// Lag is the number of blocks predictions are delayed before output.
	Lag *int `yaml:"lag,omitempty"`

	// QueueCapacity bounds each pending note queue. The oldest note is dropped on overflow.
	QueueCapacity int `yaml:"queue_capacity,omitempty"`

	// MatchNoteOffs makes note ends take part in matching, not just note starts.
	MatchNoteOffs *bool `yaml:"match_note_offs,omitempty"`

	// MaxPendingBlocks drops live notes that stayed unmatched for this many blocks. 0 keeps them forever.
	MaxPendingBlocks int `yaml:"max_pending_blocks,omitempty"`

	// ReleaseOnPause ends all sounding predicted notes when a pause begins.
	ReleaseOnPause bool `yaml:"release_on_pause,omitempty"`

	// PlayLive mixes the live notes into the synthesized output.
	PlayLive *bool `yaml:"play_live,omitempty"`

	// PassThrough mixes host MIDI into the synthesized output when it is not already the live input.
	PassThrough bool `yaml:"pass_through,omitempty"`

	// PredictionNoteOffset and LiveNoteOffset transpose the synthesized streams, to tell them apart.
	PredictionNoteOffset int `yaml:"prediction_note_offset,omitempty"`
	LiveNoteOffset       int `yaml:"live_note_offset,omitempty"`

	// PredictionChannel moves synthesized predictions to this channel (0-based). Unset keeps the channel.
	PredictionChannel *uint8 `yaml:"prediction_channel,omitempty"`
}

func ptr[T any](v T) *T {
	return &v
}

// DefaultConfig returns the default tuning.
func DefaultConfig() *Config {
	return &Config{
		TimeBetween:   0.2,
		Alpha:         0.95,
		DensityWindow: 10,
		MinDensity:    0.25,
		MaxDensity:    4.0,
		Lag:           ptr(2),
		QueueCapacity: 256,
		MatchNoteOffs: ptr(true),
		PlayLive:      ptr(true),
	}
}

// WithDefaults returns c merged over DefaultConfig.
func (c *Config) WithDefaults() *Config {
	merged := processor.Merge(*DefaultConfig(), *c)
	return &merged
}

// Validate checks that the values make sense.
func (c *Config) Validate() error {
	if c.TimeBetween < 0 {
		return fmt.Errorf("time_between must not be negative, got %v", c.TimeBetween)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0, 1], got %v", c.Alpha)
	}
	if c.DensityWindow <= 0 && c.DensityBlocks <= 0 {
		return fmt.Errorf("density window must be positive")
	}
	if c.MinDensity <= 0 || c.MaxDensity < c.MinDensity {
		return fmt.Errorf("invalid density range [%v, %v]", c.MinDensity, c.MaxDensity)
	}
	if c.lag() < 0 {
		return fmt.Errorf("lag must not be negative, got %v", c.lag())
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive, got %v", c.QueueCapacity)
	}
	if c.PredictionChannel != nil && *c.PredictionChannel > 15 {
		return fmt.Errorf("prediction_channel must be in [0, 15], got %v", *c.PredictionChannel)
	}
	return nil
}

func (c *Config) lag() int {
	return processor.WithDefault(c.Lag, 0)
}

func (c *Config) matchNoteOffs() bool {
	return processor.WithDefault(c.MatchNoteOffs, false)
}

func (c *Config) playLive() bool {
	return processor.WithDefault(c.PlayLive, false)
}

// densityBlocks returns the length of the note counting rings.
func (c *Config) densityBlocks(sampleRate float64, blockSize int) int {
	if c.DensityBlocks > 0 {
		return c.DensityBlocks
	}
	return max(1, int(math.Round(c.DensityWindow*sampleRate/float64(blockSize))))
}

func (c *Config) predictionTransform() processor.Transform {
	ch := uint8(255)
	if c.PredictionChannel != nil {
		ch = *c.PredictionChannel
	}
	return processor.Chain(processor.Transpose(c.PredictionNoteOffset), processor.MapToChannel(ch))
}

func (c *Config) liveTransform() processor.Transform {
	return processor.Transpose(c.LiveNoteOffset)
}
