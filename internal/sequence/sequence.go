package sequence

import (
	"fmt"
	"math"
	"slices"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midipredict/internal/processor"
)

// Sequence is an immutable, time ordered list of events of a whole performance.
// Times are absolute sample positions from the start.
type Sequence struct {
	events []Event
	logger *log.Logger
}

// New returns a sequence of the given events, stably sorted by time.
func New(events []Event) *Sequence {
	s := &Sequence{
		events: slices.Clone(events),
		logger: log.Default(),
	}
	slices.SortStableFunc(s.events, func(a, b Event) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return s
}

// SetLogger sets where monotonicity warnings go.
func (s *Sequence) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *Sequence) Len() int {
	return len(s.events)
}

func (s *Sequence) At(i int) Event {
	return s.events[i]
}

// End returns the time of the last event, or 0 if there is none.
func (s *Sequence) End() int64 {
	if len(s.events) == 0 {
		return 0
	}
	return s.events[len(s.events)-1].Time
}

// Read appends to dst the events from index on whose time is in [position, position+n).
// Times are rebased so that position becomes 0. It returns the number of events appended.
// Read advances nothing; the caller owns index and position.
//
// An event before position means the caller's cursor went wrong.
// It is logged and appended anyway, with a negative time.
func (s *Sequence) Read(dst *Buffer, index int, position float64, n int64) int {
	base := int64(math.Floor(position))
	count := 0
	for i := index; i < len(s.events); i++ {
		ev := s.events[i]
		if ev.Time >= base+n {
			break
		}
		if ev.Time < base {
			s.logger.Warn("Event precedes read position.", "index", i, "time", ev.Time, "position", base)
		}
		dst.Add(ev.Time-base, ev.Message)
		count++
	}
	return count
}

// FromSMF converts a MIDI file into a sequence at the given sample rate.
// The file is first reduced by processor.Prepare with options; options.Speed scales the tempo.
func FromSMF(mid *smf.SMF, sampleRate float64, options *processor.Options) (*Sequence, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", sampleRate)
	}
	if options.Speed < 0 {
		return nil, fmt.Errorf("invalid speed %v", options.Speed)
	}
	prepared, err := processor.Prepare(mid, options)
	if err != nil {
		return nil, fmt.Errorf("could not prepare MIDI: %w", err)
	}
	var events []Event
	err = processor.ForEachEventWithTime(prepared, func(tick int64, track int, msg smf.Message) error {
		if msg.IsMeta() {
			return nil
		}
		us := prepared.TimeAt(tick)
		events = append(events, Event{
			Time:    int64(math.Round(float64(us) * sampleRate / 1e6)),
			Message: midi.Message(msg),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not convert MIDI: %w", err)
	}
	// Already in order; New keeps it.
	return New(events), nil
}

// Segment splits the sequence into one buffer per block of blockSize samples, with block relative times.
// The last buffer holds the last event.
func Segment(seq *Sequence, blockSize int) []*Buffer {
	if seq.Len() == 0 {
		return nil
	}
	bs := int64(blockSize)
	blocks := make([]*Buffer, seq.End()/bs+1)
	for i := range blocks {
		blocks[i] = NewBuffer(0)
	}
	for _, ev := range seq.events {
		t := max(ev.Time, 0)
		blocks[t/bs].Add(t%bs, ev.Message)
	}
	return blocks
}
