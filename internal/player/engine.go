package player

import (
	"sync"
	"time"

	"github.com/divVerent/midipredict/internal/audio"
	"github.com/divVerent/midipredict/internal/predict"
	"github.com/divVerent/midipredict/internal/sequence"
)

// lockedEngine lets the audio goroutine run blocks while the backend inspects and resets the engine.
type lockedEngine struct {
	mu         sync.Mutex
	e          *predict.Engine
	sampleRate float64
	blockSize  int
}

func newLockedEngine(e *predict.Engine, sampleRate float64, blockSize int) *lockedEngine {
	l := &lockedEngine{
		e:          e,
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
	l.e.PrepareToPlay(sampleRate, blockSize)
	return l
}

func (l *lockedEngine) ProcessBlock(audio [][]float32, midiIO *sequence.Buffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.e.ProcessBlock(audio, midiIO)
}

func (l *lockedEngine) Finished() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.e.Finished()
}

func (l *lockedEngine) Snapshot() predict.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.e.Snapshot()
}

func (l *lockedEngine) Panic(dst *sequence.Buffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.e.Panic(dst)
}

// Restart goes back to the start of the reference.
func (l *lockedEngine) Restart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.e.PrepareToPlay(l.sampleRate, l.blockSize)
}

func (l *lockedEngine) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.e.ReleaseResources()
}

// driver pulls blocks out of a BlockSource in real time.
type driver interface {
	Play()
	Pause()
	Close() error
}

// clock drives a source from a timer, for running without an audio device.
type clock struct {
	src    audio.SampleSource
	period time.Duration
	buf    []float32
	stop   chan struct{}
	done   chan struct{}
}

func newClock(src audio.SampleSource, sampleRate float64, blockSize int) *clock {
	return &clock{
		src:    src,
		period: time.Duration(float64(blockSize) / sampleRate * float64(time.Second)),
		buf:    make([]float32, blockSize*audio.Channels),
	}
}

func (c *clock) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.src.Process(c.buf)
		}
	}
}

func (c *clock) Play() {
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
}

// Pause returns once no block is running anymore.
func (c *clock) Pause() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
}

func (c *clock) Close() error {
	c.Pause()
	return nil
}
