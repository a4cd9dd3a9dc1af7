package audio

import (
	"github.com/divVerent/midipredict/internal/sequence"
)

// BlockProcessor renders audio one fixed size block at a time.
// predict.Engine is one.
type BlockProcessor interface {
	ProcessBlock(audio [][]float32, midiIO *sequence.Buffer)
	Finished() bool
}

// BlockHook sees the MIDI buffer of block index.
type BlockHook func(index int, midiIO *sequence.Buffer)

// BlockSource cuts arbitrary pull requests into the fixed blocks a BlockProcessor wants.
// Leftover frames of a block are handed out on the next Process call.
type BlockSource struct {
	proc      BlockProcessor
	blockSize int
	planes    [][]float32
	midiIO    *sequence.Buffer
	// pos is the next frame of planes to hand out; blockSize means a new block is needed.
	pos   int
	index int

	// Before fills the MIDI buffer of a block before it is processed, e.g. with live input.
	Before BlockHook

	// After receives the MIDI the processor handed back, e.g. to forward it to a port.
	After BlockHook
}

func NewBlockSource(proc BlockProcessor, blockSize int) *BlockSource {
	planes := make([][]float32, Channels)
	for i := range planes {
		planes[i] = make([]float32, blockSize)
	}
	return &BlockSource{
		proc:      proc,
		blockSize: blockSize,
		planes:    planes,
		midiIO:    sequence.NewBuffer(64),
		pos:       blockSize,
	}
}

// Blocks returns how many blocks have been processed.
func (s *BlockSource) Blocks() int {
	return s.index
}

func (s *BlockSource) next() {
	s.pos = 0
	if s.proc.Finished() {
		for _, p := range s.planes {
			clear(p)
		}
		return
	}
	s.midiIO.Clear()
	if s.Before != nil {
		s.Before(s.index, s.midiIO)
	}
	s.proc.ProcessBlock(s.planes, s.midiIO)
	if s.After != nil {
		s.After(s.index, s.midiIO)
	}
	s.index++
}

// Process fills dst, running as many blocks as needed. Once the processor has finished, it plays silence.
func (s *BlockSource) Process(dst []float32) {
	frames := len(dst) / Channels
	for f := 0; f < frames; {
		if s.pos >= s.blockSize {
			s.next()
		}
		n := min(frames-f, s.blockSize-s.pos)
		for i := 0; i < n; i++ {
			for c := 0; c < Channels; c++ {
				dst[(f+i)*Channels+c] = s.planes[c][s.pos+i]
			}
		}
		f += n
		s.pos += n
	}
}

// Finished reports whether the processor is done and every rendered frame was handed out.
func (s *BlockSource) Finished() bool {
	return s.pos >= s.blockSize && s.proc.Finished()
}

// Render pulls chunk frames at a time from source until it finishes or maxFrames frames were produced.
// With chunk set to the block size of a BlockSource, no frames past the end are rendered.
func Render(source FinishingSource, chunk, maxFrames int) []float32 {
	var out []float32
	buf := make([]float32, chunk*Channels)
	for frames := 0; frames < maxFrames && !source.Finished(); {
		n := min(chunk, maxFrames-frames)
		source.Process(buf[:n*Channels])
		out = append(out, buf[:n*Channels]...)
		frames += n
	}
	return out
}
