package synth

import (
	"math"

	"github.com/divVerent/midipredict/internal/sequence"
)

// Params tune the sine synth.
type Params struct {
	// Voices is the polyphony. Starting a note with all voices busy takes over the oldest one.
	Voices int
	// Gain is the level at velocity 127.
	Gain float64
	// TailOff multiplies the level each sample after a note ends.
	TailOff float64
	// Cutoff is the tail level at which a voice stops.
	Cutoff float64
}

func DefaultParams() Params {
	return Params{
		Voices:  4,
		Gain:    0.15,
		TailOff: 0.99,
		Cutoff:  0.005,
	}
}

type voice struct {
	active  bool
	channel uint8
	key     uint8
	// age orders note starts for voice stealing.
	age   int64
	angle float64
	delta float64
	level float64
	// tail is 0 while the note is held, else the current release factor.
	tail float64
}

// Sine is a polyphonic sine wave synth with an exponential release.
type Sine struct {
	params     Params
	voices     []voice
	sampleRate float64
	starts     int64
}

func NewSine(params Params) *Sine {
	return &Sine{
		params: params,
		voices: make([]voice, max(params.Voices, 1)),
	}
}

func (s *Sine) PrepareToPlay(blockSize int, sampleRate float64) {
	s.sampleRate = sampleRate
	s.ReleaseResources()
}

func (s *Sine) ReleaseResources() {
	clear(s.voices)
	s.starts = 0
}

// ActiveVoices returns how many voices are sounding.
func (s *Sine) ActiveVoices() int {
	n := 0
	for i := range s.voices {
		if s.voices[i].active {
			n++
		}
	}
	return n
}

func noteHz(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

func (s *Sine) startNote(ch, key, vel uint8) {
	v := &s.voices[0]
	for i := range s.voices {
		c := &s.voices[i]
		if !c.active {
			v = c
			break
		}
		if c.age < v.age {
			v = c
		}
	}
	s.starts++
	*v = voice{
		active:  true,
		channel: ch,
		key:     key,
		age:     s.starts,
		delta:   noteHz(key) / s.sampleRate * 2 * math.Pi,
		level:   float64(vel) / 127 * s.params.Gain,
	}
}

func (s *Sine) stopNote(ch, key uint8) {
	for i := range s.voices {
		v := &s.voices[i]
		if v.active && v.channel == ch && v.key == key && v.tail == 0 {
			v.tail = 1
		}
	}
}

func (s *Sine) render(audio [][]float32, from, to int) {
	for i := range s.voices {
		v := &s.voices[i]
		if !v.active {
			continue
		}
		for n := from; n < to; n++ {
			level := v.level
			if v.tail > 0 {
				level *= v.tail
			}
			sample := float32(math.Sin(v.angle) * level)
			for _, ch := range audio {
				ch[n] += sample
			}
			v.angle += v.delta
			if v.tail > 0 {
				v.tail *= s.params.TailOff
				if v.tail <= s.params.Cutoff {
					v.active = false
					break
				}
			}
		}
		// Keep the phase small so precision does not degrade on long notes.
		v.angle = math.Mod(v.angle, 2*math.Pi)
	}
}

func (s *Sine) RenderNextBlock(audio [][]float32, midi *sequence.Buffer, startSample, numSamples int) {
	if s.sampleRate <= 0 {
		return
	}
	end := startSample + numSamples
	pos := startSample
	var ch, key, vel uint8
	for _, ev := range midi.Events() {
		t := min(max(startSample+int(ev.Time), pos), end)
		s.render(audio, pos, t)
		pos = t
		switch {
		case ev.Message.GetNoteStart(&ch, &key, &vel):
			s.startNote(ch, key, vel)
		case ev.Message.GetNoteEnd(&ch, &key):
			s.stopNote(ch, key)
		}
	}
	s.render(audio, pos, end)
}
