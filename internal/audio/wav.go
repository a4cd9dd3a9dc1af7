package audio

import (
	"fmt"
	"io"
	"math"

	"github.com/youpy/go-wav"
)

const bitsPerSample = 16

func toPCM16(s float32) int {
	v := math.Round(float64(s) * math.MaxInt16)
	return int(max(math.MinInt16, min(math.MaxInt16, v)))
}

// WriteWAV writes interleaved stereo samples as 16 bit PCM. Samples outside [-1, 1] are clipped.
func WriteWAV(w io.Writer, samples []float32, sampleRate int) error {
	frames := len(samples) / Channels
	out := make([]wav.Sample, frames)
	for i := range out {
		for c := 0; c < Channels; c++ {
			out[i].Values[c] = toPCM16(samples[i*Channels+c])
		}
	}
	writer := wav.NewWriter(w, uint32(frames), Channels, uint32(sampleRate), bitsPerSample)
	err := writer.WriteSamples(out)
	if err != nil {
		return fmt.Errorf("could not write samples: %w", err)
	}
	return nil
}
