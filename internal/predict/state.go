package predict

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/divVerent/midipredict/internal/processor"
	"github.com/divVerent/midipredict/internal/sequence"
)

// eventsPerBlock is the initial capacity of per block buffers.
const eventsPerBlock = 64

// TempoState is the note density estimate and its counting windows.
type TempoState struct {
	// Density is the tempo multiplier; 1 plays at the reference tempo.
	Density float64

	// NumPredicted and NumLive are the sums of PrevPred and PrevLive.
	NumPredicted, NumLive int

	// PrevPred and PrevLive are the per block note counts of the window.
	PrevPred, PrevLive []int

	// Cursor is the ring slot the next block overwrites.
	Cursor int
}

// State is everything the engine carries from one block to the next.
// All step functions work on it; a fresh State is a fresh playback session.
type State struct {
	SampleRate float64
	BlockSize  int

	// RecIndex is the next reference event to play.
	RecIndex int
	// RecPosition is the reference time in samples that RecIndex was read from.
	RecPosition float64
	// LiveIndex is the next live block. It counts blocks.
	LiveIndex int
	// ScannedIndex is the first reference event the matcher has not seen yet.
	ScannedIndex int

	PredQueue *NoteQueue
	LiveQueue *NoteQueue
	Tempo     TempoState
	Lag       *LagRing

	// Paused is the pause decision of the latest block.
	Paused bool
	// PredictedStarts is the number of note starts the matcher scanned in the latest block.
	PredictedStarts int
	// TailBlocks counts blocks since the reference ran out or the performance stalled.
	TailBlocks int

	// RefWindow is the reference read for this block, rebased to RecPosition.
	RefWindow *sequence.Buffer
	// Live is this block's live input.
	Live *sequence.Buffer
	// Prediction is this block's freshly generated output.
	Prediction *sequence.Buffer
	// Output is what the synth plays this block.
	Output *sequence.Buffer

	timeBetween   int64
	matchNoteOffs bool
	maxPending    int

	// predicted tracks sounding notes of the generated stream, sent tracks those handed to the host.
	predicted *processor.NoteTracker
	sent      *processor.NoteTracker

	logger *log.Logger
}

// NewState returns the initial state for playing at sampleRate in blocks of blockSize samples.
// config must have its defaults applied.
func NewState(config *Config, sampleRate float64, blockSize int, logger *log.Logger) *State {
	if logger == nil {
		logger = log.Default()
	}
	ringLen := config.densityBlocks(sampleRate, blockSize)
	windowCap := eventsPerBlock * (int(math.Ceil(config.MaxDensity)) + 1)
	return &State{
		SampleRate: sampleRate,
		BlockSize:  blockSize,
		PredQueue:  NewNoteQueue(config.QueueCapacity),
		LiveQueue:  NewNoteQueue(config.QueueCapacity),
		Tempo: TempoState{
			Density:  1,
			PrevPred: make([]int, ringLen),
			PrevLive: make([]int, ringLen),
		},
		Lag:           NewLagRing(config.lag(), eventsPerBlock),
		RefWindow:     sequence.NewBuffer(windowCap),
		Live:          sequence.NewBuffer(eventsPerBlock),
		Prediction:    sequence.NewBuffer(eventsPerBlock),
		Output:        sequence.NewBuffer(3 * eventsPerBlock),
		timeBetween:   int64(math.Round(config.TimeBetween * sampleRate)),
		matchNoteOffs: config.matchNoteOffs(),
		maxPending:    config.MaxPendingBlocks,
		predicted:     processor.NewNoteTracker(false),
		sent:          processor.NewNoteTracker(false),
		logger:        logger,
	}
}
