package predict

import (
	"math"

	"github.com/divVerent/midipredict/internal/sequence"
)

// LiveSource supplies the live events of each block.
type LiveSource interface {
	// Next adds the live events of block index to dst, with block relative times.
	// host is what the host passed in for this block, and may be nil.
	Next(dst *sequence.Buffer, index, blockSize int, host *sequence.Buffer)

	// Done reports whether block index and everything after it will be empty.
	Done(index int) bool
}

// SegmentedSource replays a pre-segmented performance, one buffer per block.
type SegmentedSource []*sequence.Buffer

func (s SegmentedSource) Next(dst *sequence.Buffer, index, blockSize int, host *sequence.Buffer) {
	if index < 0 || index >= len(s) {
		return
	}
	dst.Merge(s[index], 0, int64(blockSize), nil)
}

func (s SegmentedSource) Done(index int) bool {
	return index >= len(s)
}

// HostSource takes the live events from the MIDI the host passes in.
type HostSource struct{}

func (HostSource) Next(dst *sequence.Buffer, index, blockSize int, host *sequence.Buffer) {
	if host == nil {
		return
	}
	dst.Merge(host, 0, int64(blockSize), nil)
}

func (HostSource) Done(index int) bool {
	return false
}

// windowSamples is how much reference to read so that the current tempo never starves the generator.
func windowSamples(st *State) int64 {
	return int64(math.Ceil(st.Tempo.Density)+1) * int64(st.BlockSize)
}

// GetBuffers fills st.RefWindow with the upcoming reference events and st.Live with this block's live events.
// It advances LiveIndex. Exhausted sources leave the buffers empty.
func GetBuffers(st *State, ref *sequence.Sequence, live LiveSource, host *sequence.Buffer) {
	st.RefWindow.Clear()
	if ref != nil {
		ref.Read(st.RefWindow, st.RecIndex, st.RecPosition, windowSamples(st))
	}
	st.Live.Clear()
	if live != nil {
		live.Next(st.Live, st.LiveIndex, st.BlockSize, host)
	}
	st.LiveIndex++
}
