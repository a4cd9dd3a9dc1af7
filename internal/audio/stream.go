// Package audio streams interleaved stereo float samples to ebiten audio and to WAV files.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Channels is the number of interleaved channels everything in this package uses.
const Channels = 2

// SampleSource fills dst with interleaved stereo samples.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that knows when it has nothing more to play.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader turns a SampleSource into float32 little endian bytes, as ebiten's F32 players want them.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	const frameBytes = 4 * Channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return 0, io.EOF
	}
	need := frames * Channels
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * frameBytes, nil
}

func (r *StreamReader) Close() error { return nil }

// Player plays a SampleSource on the default audio device.
type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process wide audio context. ebiten allows only one.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz, requested %d Hz", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer creates a paused player pulling from source.
// bufferSize is the device buffer to ask for; 0 keeps ebiten's default.
func NewPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("could not create audio player: %w", err)
	}
	if bufferSize > 0 {
		pl.SetBufferSize(bufferSize)
	}
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns what the listener actually hears.
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Close() error {
	p.player.Pause()
	err := p.player.Close()
	if err != nil {
		return fmt.Errorf("could not close audio player: %w", err)
	}
	return p.reader.Close()
}
