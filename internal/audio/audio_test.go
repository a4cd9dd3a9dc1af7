package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youpy/go-wav"
	"gitlab.com/gomidi/midi/v2"

	"github.com/divVerent/midipredict/internal/sequence"
)

// countingProcessor writes block number and frame into the channels.
type countingProcessor struct {
	blocks int
	limit  int
	midi   []int
}

func (p *countingProcessor) ProcessBlock(audio [][]float32, midiIO *sequence.Buffer) {
	for i := range audio[0] {
		audio[0][i] = float32(p.blocks)
		audio[1][i] = float32(i)
	}
	p.midi = append(p.midi, midiIO.Len())
	midiIO.Clear()
	midiIO.Add(0, midi.NoteOn(0, 60, 100))
	p.blocks++
}

func (p *countingProcessor) Finished() bool {
	return p.blocks >= p.limit
}

func TestBlockSourceSplitsBlocks(t *testing.T) {
	proc := &countingProcessor{limit: 100}
	s := NewBlockSource(proc, 4)
	var before, after []int
	s.Before = func(index int, midiIO *sequence.Buffer) {
		before = append(before, index)
		midiIO.Add(1, midi.NoteOn(0, 1, 1))
		midiIO.Add(2, midi.NoteOff(0, 1))
	}
	s.After = func(index int, midiIO *sequence.Buffer) {
		after = append(after, midiIO.Len())
	}

	dst := make([]float32, 3*Channels)
	s.Process(dst)
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 2}, dst)
	s.Process(dst)
	assert.Equal(t, []float32{0, 3, 1, 0, 1, 1}, dst)
	assert.Equal(t, 2, s.Blocks())
	assert.Equal(t, []int{0, 1}, before)
	assert.Equal(t, []int{1, 1}, after)
	assert.Equal(t, []int{2, 2}, proc.midi)
}

func TestBlockSourceFinishesAfterDraining(t *testing.T) {
	proc := &countingProcessor{limit: 2}
	s := NewBlockSource(proc, 4)
	assert.False(t, s.Finished())

	dst := make([]float32, 6*Channels)
	s.Process(dst)
	assert.True(t, proc.Finished())
	assert.False(t, s.Finished(), "two frames of the last block are still pending")
	s.Process(dst[:2*Channels])
	assert.True(t, s.Finished())

	s.Process(dst)
	assert.Equal(t, make([]float32, 6*Channels), dst)
	assert.Equal(t, 2, proc.blocks)
}

func TestRender(t *testing.T) {
	proc := &countingProcessor{limit: 3}
	out := Render(NewBlockSource(proc, 512), 512, 1<<20)
	assert.Len(t, out, 3*512*Channels)

	proc = &countingProcessor{limit: 1000}
	out = Render(NewBlockSource(proc, 512), 64, 100)
	assert.Len(t, out, 100*Channels)
	assert.Equal(t, 1, proc.blocks)
}

func TestStreamReader(t *testing.T) {
	proc := &countingProcessor{limit: 1}
	r := NewStreamReader(NewBlockSource(proc, 2))
	p := make([]byte, 2*4*Channels+3)
	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(p[12:])))

	n, err = r.Read(p)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteWAV(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, 2, -2}
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, samples, 48000))

	r := wav.NewReader(bytes.NewReader(buf.Bytes()))
	format, err := r.Format()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), format.NumChannels)
	assert.Equal(t, uint32(48000), format.SampleRate)
	assert.Equal(t, uint16(16), format.BitsPerSample)

	var got []int
	for {
		read, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		for _, s := range read {
			got = append(got, s.Values[0], s.Values[1])
		}
	}
	assert.Equal(t, []int{0, 16384, -16384, 32767, 32767, -32768}, got)
}
