// Package synth renders MIDI buffers into audio.
package synth

import (
	"github.com/divVerent/midipredict/internal/sequence"
)

// Synth turns one block of MIDI events into audio.
type Synth interface {
	// PrepareToPlay resets the synth for the given block size and sample rate.
	PrepareToPlay(blockSize int, sampleRate float64)

	// ReleaseResources stops all sound.
	ReleaseResources()

	// RenderNextBlock adds numSamples samples starting at startSample to each channel of audio.
	// Event times in midi are relative to startSample.
	RenderNextBlock(audio [][]float32, midi *sequence.Buffer, startSample, numSamples int)
}
