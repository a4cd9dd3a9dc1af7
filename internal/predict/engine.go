package predict

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/divVerent/midipredict/internal/processor"
	"github.com/divVerent/midipredict/internal/sequence"
	"github.com/divVerent/midipredict/internal/synth"
)

// Engine runs the prediction once per audio block.
// It is not safe for concurrent use; calls must not overlap.
type Engine struct {
	config  *Config
	ref     *sequence.Sequence
	live    LiveSource
	synth   synth.Synth
	logger  *log.Logger
	state   *State
	hostIn  bool
	predOut processor.Transform
	liveOut processor.Transform
}

// Snapshot is a copy of the numbers worth showing about the engine.
type Snapshot struct {
	Prepared bool
	// Blocks is the number of blocks processed.
	Blocks   int
	Density  float64
	Paused   bool
	RecIndex int
	RecLen   int
	// Position is the reference time reached.
	Position         time.Duration
	PendingPredicted int
	PendingLive      int
	Dropped          int
	// Stalled is set when the performance is over and nothing can end the pause.
	Stalled  bool
	Finished bool
}

// NewEngine returns an engine following live along ref. s may be nil for MIDI only operation.
// Defaults are applied to config.
func NewEngine(config *Config, ref *sequence.Sequence, live LiveSource, s synth.Synth) (*Engine, error) {
	cfg := config.WithDefaults()
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	_, hostIn := live.(HostSource)
	return &Engine{
		config:  cfg,
		ref:     ref,
		live:    live,
		synth:   s,
		logger:  log.Default(),
		hostIn:  hostIn,
		predOut: cfg.predictionTransform(),
		liveOut: cfg.liveTransform(),
	}, nil
}

// SetLogger sets where the engine logs to. Per block traces are at debug level.
func (e *Engine) SetLogger(logger *log.Logger) {
	e.logger = logger
	if e.ref != nil {
		e.ref.SetLogger(logger)
	}
	if e.state != nil {
		e.state.logger = logger
	}
}

// Config returns the effective config.
func (e *Engine) Config() *Config {
	return e.config
}

// PrepareToPlay resets all playback state for the given sample rate and block size.
func (e *Engine) PrepareToPlay(sampleRate float64, blockSize int) {
	if sampleRate <= 0 || blockSize <= 0 {
		e.logger.Error("Refusing to prepare.", "sample_rate", sampleRate, "block_size", blockSize)
		e.state = nil
		return
	}
	e.state = NewState(e.config, sampleRate, blockSize, e.logger)
	if e.synth != nil {
		e.synth.PrepareToPlay(blockSize, sampleRate)
	}
	e.logger.Debug("Prepared.", "sample_rate", sampleRate, "block_size", blockSize, "density_blocks", len(e.state.Tempo.PrevPred), "lag", e.state.Lag.Len())
}

// ReleaseResources stops the synth. ProcessBlock is a no-op until the next PrepareToPlay.
func (e *Engine) ReleaseResources() {
	if e.synth != nil {
		e.synth.ReleaseResources()
	}
	e.state = nil
}

// State returns the live state, or nil when not prepared.
func (e *Engine) State() *State {
	return e.state
}

func clearAudio(audio [][]float32) {
	for _, ch := range audio {
		clear(ch)
	}
}

// releasePredicted ends all sounding predicted notes at the start of this block's prediction.
func releasePredicted(st *State) {
	for _, msg := range processor.AllNotesOff(st.predicted.NotesPlaying()) {
		st.Prediction.Add(0, msg)
	}
	st.predicted.Reset()
}

// ProcessBlock runs one block. audio is overwritten with the synthesized output.
// midiIO holds the host's MIDI for this block on entry and the delayed prediction on return. It may be nil.
func (e *Engine) ProcessBlock(audio [][]float32, midiIO *sequence.Buffer) {
	st := e.state
	if st == nil {
		clearAudio(audio)
		return
	}

	GetBuffers(st, e.ref, e.live, midiIO)
	wasPaused := st.Paused
	density := st.Tempo.Density
	paused := CheckIfPause(st)
	UpdateNoteDensity(st, e.config, st.PredictedStarts, st.Live.CountNoteStarts())
	GeneratePrediction(st, paused, density)
	if paused && !wasPaused && e.config.ReleaseOnPause {
		releasePredicted(st)
	}
	for _, ev := range st.Prediction.Events() {
		st.predicted.Handle(ev.Message)
	}
	if e.ref == nil || st.RecIndex >= e.ref.Len() || e.stalled() {
		st.TailBlocks++
	}

	due := st.Prediction
	if st.Lag.Len() > 0 {
		due = st.Lag.Due()
	}

	st.Output.Clear()
	st.Output.Merge(due, 0, -1, e.predOut)
	if e.config.playLive() {
		st.Output.Merge(st.Live, 0, -1, e.liveOut)
	}
	if e.config.PassThrough && !e.hostIn && midiIO != nil {
		st.Output.Merge(midiIO, 0, int64(st.BlockSize), nil)
	}

	clearAudio(audio)
	if e.synth != nil && len(audio) > 0 {
		e.synth.RenderNextBlock(audio, st.Output, 0, min(st.BlockSize, len(audio[0])))
	}

	if midiIO != nil {
		if st.Lag.Len() > 0 {
			midiIO.Swap(due)
		} else {
			midiIO.Clear()
			midiIO.Merge(due, 0, -1, nil)
		}
		for _, ev := range midiIO.Events() {
			st.sent.Handle(ev.Message)
		}
	}
	st.Lag.Store(st.Prediction)

	if e.logger.GetLevel() <= log.DebugLevel {
		e.logger.Debug("Block.", "block", st.LiveIndex-1, "density", st.Tempo.Density, "paused", paused, "rec_index", st.RecIndex, "pending_pred", st.PredQueue.Len(), "pending_live", st.LiveQueue.Len())
	}
}

// Panic adds note ends for every note handed to the host that is still sounding.
func (e *Engine) Panic(dst *sequence.Buffer) {
	if e.state == nil {
		return
	}
	for _, msg := range processor.AllNotesOff(e.state.sent.NotesPlaying()) {
		dst.Add(0, msg)
	}
	e.state.sent.Reset()
}

// stalled reports whether the engine waits for a live note that can no longer come:
// the live source is exhausted and no queued live note has the key of the oldest pending prediction.
func (e *Engine) stalled() bool {
	st := e.state
	if !st.Paused || st.PredQueue.Len() == 0 || e.live == nil || !e.live.Done(st.LiveIndex) {
		return false
	}
	head := st.PredQueue.At(0)
	for i := 0; i < st.LiveQueue.Len(); i++ {
		it := st.LiveQueue.At(i)
		if it.Key == head.Key && it.End == head.End {
			return false
		}
	}
	return true
}

// Finished reports whether the whole reference has been played, or the performance ended
// while waiting for a note, and the last prediction has left the lag ring.
func (e *Engine) Finished() bool {
	st := e.state
	if st == nil {
		return false
	}
	return st.TailBlocks > st.Lag.Len()
}

// Snapshot returns the current numbers, or a zero Snapshot when not prepared.
func (e *Engine) Snapshot() Snapshot {
	st := e.state
	if st == nil {
		return Snapshot{}
	}
	recLen := 0
	if e.ref != nil {
		recLen = e.ref.Len()
	}
	return Snapshot{
		Prepared:         true,
		Blocks:           st.LiveIndex,
		Density:          st.Tempo.Density,
		Paused:           st.Paused,
		RecIndex:         st.RecIndex,
		RecLen:           recLen,
		Position:         time.Duration(st.RecPosition / st.SampleRate * float64(time.Second)),
		PendingPredicted: st.PredQueue.Len(),
		PendingLive:      st.LiveQueue.Len(),
		Dropped:          st.PredQueue.Dropped + st.LiveQueue.Dropped,
		Stalled:          e.stalled(),
		Finished:         e.Finished(),
	}
}
