package player

import (
	"bytes"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midipredict/internal/file"
	"github.com/divVerent/midipredict/internal/predict"
	"github.com/divVerent/midipredict/internal/processor"
	"github.com/divVerent/midipredict/internal/sequence"
)

type fakePort struct {
	name string
	num  int
}

func (p fakePort) String() string { return p.name }
func (p fakePort) Number() int    { return p.num }

func TestFindBestPort(t *testing.T) {
	ports := []fakePort{
		{"Midi Through Port-0", 0},
		{"FLUID Synth", 1},
		{"Digital Piano", 2},
		{"USB MIDI Interface", 3},
	}
	for _, tc := range []struct {
		name, pattern, preferred, want string
	}{
		{"ranked", "", "", "USB MIDI Interface"},
		{"pattern", "Piano|FLUID", "", "Digital Piano"},
		{"preferred", "", "FLUID Synth", "FLUID Synth"},
		{"pattern wins", "Through", "FLUID Synth", "Midi Through Port-0"},
		{"unmatched pattern falls back", "nothing", "", "USB MIDI Interface"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := findBestPort(ports, tc.pattern, tc.preferred)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}

	_, err := findBestPort(ports[:1], "", "")
	assert.Error(t, err)
	_, err = findBestPort(ports, "(", "")
	assert.Error(t, err)
}

func TestCollector(t *testing.T) {
	c := NewCollector(2)
	msg := midi.NoteOn(0, 60, 100)
	c.Receive(msg, 0)
	msg[1] = 61 // The driver reusing its buffer must not matter.
	c.Receive(midi.ControlChange(0, 64, 127), 0)
	c.Receive(midi.NoteOff(0, 60), 0)
	c.Receive(midi.NoteOn(0, 62, 100), 0)
	assert.Equal(t, 1, c.Dropped())

	buf := sequence.NewBuffer(4)
	c.Drain(0, buf)
	require.Equal(t, 2, buf.Len())
	var ch, key, vel uint8
	assert.True(t, buf.At(0).Message.GetNoteStart(&ch, &key, &vel))
	assert.Equal(t, uint8(60), key)
	assert.True(t, buf.At(1).Message.GetNoteEnd(&ch, &key))

	buf.Clear()
	c.Drain(1, buf)
	assert.Equal(t, 0, buf.Len())

	c.Receive(midi.NoteOn(0, 62, 100), 0)
	c.Reset()
	c.Drain(2, buf)
	assert.Equal(t, 0, buf.Len())
}

func TestCommandIsZero(t *testing.T) {
	assert.True(t, Command{}.IsZero())
	assert.False(t, Command{Restart: true}.IsZero())
}

func TestForwardDropsWhenFull(t *testing.T) {
	b := NewBackend(&Options{
		Config:  &predict.Config{},
		Session: &file.Options{Reference: "ref.mid"},
	})
	buf := sequence.NewBuffer(1)
	b.forward(0, buf)
	assert.Len(t, b.outbox, 0, "empty blocks are not forwarded")

	buf.Add(0, midi.NoteOn(0, 60, 100))
	for i := 0; i < cap(b.outbox)+3; i++ {
		b.forward(i, buf)
	}
	assert.Len(t, b.outbox, cap(b.outbox))
	assert.Equal(t, int64(3), b.outDropped.Load())
	require.NoError(t, b.flush())
	assert.Len(t, b.outbox, 0)
}

type countingSource struct {
	calls atomic.Int64
}

func (s *countingSource) Process(dst []float32) {
	s.calls.Add(1)
}

func TestClock(t *testing.T) {
	var src countingSource
	c := newClock(&src, 48000, 48)
	c.Play()
	c.Play()
	assert.Eventually(t, func() bool {
		return src.calls.Load() >= 3
	}, 2*time.Second, time.Millisecond)
	c.Pause()
	n := src.calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, src.calls.Load(), "paused clock runs no blocks")
	assert.NoError(t, c.Close())
}

func referenceFS(t *testing.T) fstest.MapFS {
	t.Helper()
	mid := smf.New()
	mid.TimeFormat = smf.MetricTicks(480)
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(480, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOn(0, 62, 100))
	tr.Add(480, midi.NoteOff(0, 62))
	tr.Close(0)
	require.NoError(t, mid.Add(tr))
	var buf bytes.Buffer
	_, err := mid.WriteTo(&buf)
	require.NoError(t, err)
	return fstest.MapFS{"ref.mid": {Data: buf.Bytes()}}
}

func TestBackendFollowsToTheEnd(t *testing.T) {
	b := NewBackend(&Options{
		FSys:   referenceFS(t),
		Config: &predict.Config{},
		Session: &file.Options{
			Reference: "ref.mid",
			Prepare:   processor.Options{Speed: 4},
		},
	})
	// Play everything up front; the predictions all find their live note.
	for _, msg := range []midi.Message{
		midi.NoteOn(0, 60, 100),
		midi.NoteOff(0, 60),
		midi.NoteOn(0, 62, 100),
		midi.NoteOff(0, 62),
	} {
		b.Collector().Receive(msg, 0)
	}

	done := make(chan error, 1)
	go func() {
		done <- b.Loop()
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		b.Commands <- Command{Quit: true}
		<-done
		t.Fatal("reference never finished")
	}
	b.Close()

	var last UIState
	for ui := range b.UIStates {
		last = ui
	}
	assert.True(t, last.Engine.Finished)
	assert.Equal(t, 4, last.Engine.RecIndex)
	assert.Equal(t, "finished", last.CurrentMessage)
	assert.NoError(t, last.Err)
}
