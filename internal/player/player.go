// Package player runs the prediction engine against a live MIDI keyboard.
package player

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/divVerent/midipredict/internal/audio"
	"github.com/divVerent/midipredict/internal/file"
	"github.com/divVerent/midipredict/internal/predict"
	"github.com/divVerent/midipredict/internal/processor"
	"github.com/divVerent/midipredict/internal/sequence"
	"github.com/divVerent/midipredict/internal/synth"
)

type Command struct {
	// Quit ends the session.
	Quit bool

	// Restart follows the reference from its beginning again.
	Restart bool

	// Panic ends every note sent so far.
	Panic bool

	// OutPort contains a new, not yet opened, MIDI port to send to.
	OutPort drivers.Out
}

// IsZero returns if the command is an empty message. If so, this likely indicates a closed channel.
func (c Command) IsZero() bool {
	return reflect.DeepEqual(c, Command{})
}

// UIState is the state of the user interface.
type UIState struct {
	// Err is set to show an error message. The backend is dead.
	Err error

	// Reference is the file being followed.
	Reference string

	// InPort and OutPort are the names of the MIDI ports in use.
	InPort  string
	OutPort string

	// Playing is whether blocks are being processed.
	Playing bool

	// CurrentMessage is a message for what is currently going on.
	CurrentMessage string

	// Engine is the most recent engine snapshot.
	Engine predict.Snapshot

	// Heard is how much audio has left the speakers. Zero without audio.
	Heard time.Duration

	// LiveDropped counts live notes that arrived faster than blocks were processed.
	LiveDropped int

	// OutDropped counts output blocks lost because the output port could not keep up.
	OutDropped int
}

// Fraction returns how much of the reference has been predicted.
func (ui UIState) Fraction() float64 {
	if ui.Engine.RecLen == 0 {
		return 0
	}
	return float64(ui.Engine.RecIndex) / float64(ui.Engine.RecLen)
}

type Options struct {
	// FSys is the virtual file system to use.
	FSys fs.FS

	// Config is the engine tuning.
	Config *predict.Config

	// Session names the reference and the audio parameters.
	Session *file.Options

	// InPort is where the performer plays. If nil, there is no live input.
	InPort drivers.In

	// OutPort receives the prediction. If nil, the prediction is only heard.
	OutPort drivers.Out

	// Audio plays the synthesized prediction on the default audio device.
	// Without it, blocks are clocked by a timer.
	Audio bool

	// AudioBuffer is the device buffer to ask for. 0 keeps the default.
	AudioBuffer time.Duration

	// Logger defaults to log.Default().
	Logger *log.Logger
}

type Backend struct {
	// Commands can be used to send commands to the backend.
	Commands chan Command

	// UIStates receives updates to the UI state non-blockingly.
	UIStates chan UIState

	fsys    fs.FS
	config  predict.Config
	session file.Options
	logger  *log.Logger

	inPort  drivers.In
	outPort drivers.Out

	// nextOutPort is the outPort to change to.
	nextOutPort drivers.Out

	useAudio    bool
	audioBuffer time.Duration

	// The current UI state. Sent to the client on every update, nonblockingly.
	uiState UIState

	collector     *Collector
	engine        *lockedEngine
	driver        driver
	stopListening func()

	// outbox carries the prediction from the audio goroutine to the output port.
	outbox     chan []midi.Message
	outDropped atomic.Int64
}

func NewBackend(options *Options) *Backend {
	logger := options.Logger
	if logger == nil {
		logger = log.Default()
	}
	session := options.Session.WithDefaults()
	return &Backend{
		Commands:    make(chan Command, 10),
		UIStates:    make(chan UIState, 100),
		fsys:        options.FSys,
		config:      *options.Config,
		session:     *session,
		logger:      logger,
		inPort:      options.InPort,
		nextOutPort: options.OutPort,
		useAudio:    options.Audio,
		audioBuffer: options.AudioBuffer,
		uiState: UIState{
			Reference:      session.Reference,
			CurrentMessage: "initializing player",
		},
		collector: NewCollector(256),
		outbox:    make(chan []midi.Message, 64),
	}
}

// Collector returns where live input is gathered. It is fed by the input port once Loop runs.
func (b *Backend) Collector() *Collector {
	return b.collector
}

func (b *Backend) sendUIState() {
	select {
	case b.UIStates <- b.uiState:
		return
	default:
		b.logger.Debug("Tried to send an UI state, but nobody came.")
		return
	}
}

var SigIntError = errors.New("SIGINT caught")
var sigInt = make(chan os.Signal, 1)

func init() {
	signal.Notify(sigInt, os.Interrupt)
}

var QuitError = errors.New("intentionally quitting")

func (b *Backend) updateOutPort() error {
	if b.nextOutPort == nil {
		return nil
	}
	port := b.nextOutPort
	b.nextOutPort = nil
	err := port.Open()
	if err != nil {
		return fmt.Errorf("could not open %v: %w", port, err)
	}
	if b.outPort != nil {
		b.outPort.Close()
	}
	b.outPort = port
	b.uiState.OutPort = port.String()
	return nil
}

// forward hands the MIDI of a finished block to the main loop. Runs on the audio goroutine.
func (b *Backend) forward(index int, midiIO *sequence.Buffer) {
	if midiIO.Len() == 0 {
		return
	}
	msgs := make([]midi.Message, 0, midiIO.Len())
	for _, ev := range midiIO.Events() {
		msgs = append(msgs, ev.Message)
	}
	select {
	case b.outbox <- msgs:
	default:
		b.outDropped.Add(1)
	}
}

func (b *Backend) send(msgs []midi.Message) error {
	if b.outPort == nil {
		return nil
	}
	for _, msg := range msgs {
		err := b.outPort.Send(msg)
		if err != nil {
			return fmt.Errorf("could not send to %v: %w", b.outPort, err)
		}
	}
	return nil
}

// flush sends whatever the audio goroutine queued.
func (b *Backend) flush() error {
	for {
		select {
		case msgs := <-b.outbox:
			err := b.send(msgs)
			if err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// allNotesOff ends all notes sent to the output port.
func (b *Backend) allNotesOff() error {
	err := b.flush()
	if err != nil {
		return err
	}
	if b.engine == nil {
		return nil
	}
	buf := sequence.NewBuffer(16)
	b.engine.Panic(buf)
	msgs := make([]midi.Message, 0, buf.Len())
	for _, ev := range buf.Events() {
		msgs = append(msgs, ev.Message)
	}
	return b.send(msgs)
}

// start loads the reference and begins processing blocks.
func (b *Backend) start() error {
	seq, err := file.LoadReference(b.fsys, &b.session)
	if err != nil {
		return fmt.Errorf("could not load reference: %w", err)
	}
	seq.SetLogger(b.logger)

	var s synth.Synth
	if b.useAudio {
		s = synth.NewSine(synth.DefaultParams())
	}
	engine, err := predict.NewEngine(&b.config, seq, predict.HostSource{}, s)
	if err != nil {
		return err
	}
	engine.SetLogger(b.logger)
	sampleRate, blockSize := b.session.SampleRate, b.session.BlockSize
	b.engine = newLockedEngine(engine, float64(sampleRate), blockSize)

	err = b.updateOutPort()
	if err != nil {
		return err
	}
	// Silence whatever an earlier session may have left sounding.
	keys, err := file.PanicKeys(b.fsys, &b.session)
	if err != nil {
		return err
	}
	err = b.send(processor.AllNotesOff(keys))
	if err != nil {
		return err
	}

	if b.inPort != nil {
		stop, err := midi.ListenTo(b.inPort, b.collector.Receive)
		if err != nil {
			return fmt.Errorf("could not listen to %v: %w", b.inPort, err)
		}
		b.stopListening = stop
		b.uiState.InPort = b.inPort.String()
	} else {
		b.logger.Warn("No input port; nothing will be followed.")
	}

	src := audio.NewBlockSource(b.engine, blockSize)
	src.Before = b.collector.Drain
	src.After = b.forward
	if b.useAudio {
		pl, err := audio.NewPlayer(sampleRate, src, b.audioBuffer)
		if err != nil {
			return err
		}
		b.driver = pl
	} else {
		b.driver = newClock(src, float64(sampleRate), blockSize)
	}
	b.driver.Play()
	b.uiState.Playing = true
	b.uiState.CurrentMessage = "following"
	return nil
}

func (b *Backend) handleCommand(cmd Command) error {
	switch {
	case cmd.Quit:
		return QuitError
	case cmd.Restart:
		b.driver.Pause()
		err := b.allNotesOff()
		if err != nil {
			return err
		}
		b.collector.Reset()
		b.engine.Restart()
		b.driver.Play()
		b.uiState.CurrentMessage = "restarted"
		return nil
	case cmd.Panic:
		return b.allNotesOff()
	case cmd.OutPort != nil:
		err := b.allNotesOff()
		if err != nil {
			return err
		}
		b.nextOutPort = cmd.OutPort
		return b.updateOutPort()
	case cmd.IsZero():
		// Closed channel.
		return QuitError
	default:
		return fmt.Errorf("unrecognized command: %+v", cmd)
	}
}

func (b *Backend) updateUIState() {
	b.uiState.Engine = b.engine.Snapshot()
	b.uiState.LiveDropped = b.collector.Dropped()
	b.uiState.OutDropped = int(b.outDropped.Load())
	if pl, ok := b.driver.(*audio.Player); ok {
		b.uiState.Heard = pl.Position()
	}
}

// Loop follows the reference until it is finished or a quit command arrives.
// It returns nil when the reference is done.
func (b *Backend) Loop() error {
	err := b.start()
	if err != nil {
		b.uiState.Err = err
		b.sendUIState()
		return err
	}
	b.sendUIState()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sigInt:
			return SigIntError
		case cmd := <-b.Commands:
			err := b.handleCommand(cmd)
			if err != nil {
				if !errors.Is(err, QuitError) {
					b.uiState.Err = err
					b.sendUIState()
				}
				return err
			}
		case msgs := <-b.outbox:
			err := b.send(msgs)
			if err != nil {
				b.uiState.Err = err
				b.sendUIState()
				return err
			}
		case <-ticker.C:
			b.updateUIState()
			if b.uiState.Engine.Finished {
				b.uiState.Playing = false
				b.uiState.CurrentMessage = "finished"
				b.sendUIState()
				return b.flush()
			}
			b.sendUIState()
		}
	}
}

// Close stops playback, silences the output and closes the ports.
func (b *Backend) Close() {
	if b.driver != nil {
		err := b.driver.Close()
		if err != nil {
			b.logger.Error("Could not stop playback.", "err", err)
		}
		b.driver = nil
	}
	if b.stopListening != nil {
		b.stopListening()
		b.stopListening = nil
	}
	err := b.allNotesOff()
	if err != nil {
		b.logger.Error("Could not silence output.", "err", err)
	}
	if b.engine != nil {
		b.engine.Release()
	}
	if b.inPort != nil {
		b.inPort.Close()
		b.inPort = nil
	}
	b.nextOutPort = nil
	if b.outPort != nil {
		b.outPort.Close()
		b.outPort = nil
	}
	close(b.UIStates)
}
