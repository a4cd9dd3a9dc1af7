package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/term"

	"github.com/divVerent/midipredict/internal/file"
	"github.com/divVerent/midipredict/internal/player"
	"github.com/divVerent/midipredict/internal/tui"
	"github.com/divVerent/midipredict/internal/version"
)

var (
	c           = flag.String("c", "", "config file name (YAML); empty uses the defaults")
	i           = flag.String("i", "", "session file name (YAML)")
	ref         = flag.String("ref", "", "reference MIDI file; overrides the session")
	inPort      = flag.String("in_port", "", "regular expression to match the preferred input port")
	outPort     = flag.String("out_port", "", "regular expression to match the preferred output port")
	noOut       = flag.Bool("no_out", false, "do not send the prediction to a MIDI port")
	playAudio   = flag.Bool("audio", true, "synthesize the prediction on the default audio device")
	audioBuffer = flag.Duration("audio_buffer", 20*time.Millisecond, "audio device buffer size")
	logLevel    = flag.String("log_level", "info", "log level")
	logFile     = flag.String("log_file", "", "log to this file; needed to see logs while the status screen is shown")
	plain       = flag.Bool("plain", false, "log status changes instead of showing the status screen")
)

// plainUI logs what changes until the backend closes the UI channel.
func plainUI(b *player.Backend) {
	var prev player.UIState
	for ui := range b.UIStates {
		if ui.OutPort != prev.OutPort && ui.OutPort != "" {
			log.Infof("Sending to %v.", ui.OutPort)
		}
		if ui.Engine.Paused != prev.Engine.Paused {
			if ui.Engine.Paused {
				log.Info("Waiting for the performer.", "position", ui.Engine.Position, "pending", ui.Engine.PendingPredicted)
			} else {
				log.Info("Following.", "position", ui.Engine.Position, "tempo", fmt.Sprintf("%.0f%%", 100*ui.Engine.Density))
			}
		}
		if ui.CurrentMessage != prev.CurrentMessage && ui.CurrentMessage != "" {
			log.Infof("Now %v.", ui.CurrentMessage)
		}
		if ui.Err != nil && prev.Err == nil {
			log.Error("Backend failed.", "err", ui.Err)
		}
		prev = ui
	}
}

func findPorts(options *file.Options) (drivers.In, drivers.Out, error) {
	in, err := player.FindBestInPort(*inPort, options.InPort)
	if err != nil {
		return nil, nil, fmt.Errorf("could not find MIDI input port: %w", err)
	}
	log.Infof("Picked input port: %v.", in)
	if *noOut {
		return in, nil, nil
	}
	out, err := player.FindBestOutPort(*outPort, options.OutPort)
	if err != nil {
		if !*playAudio {
			return nil, nil, fmt.Errorf("could not find MIDI output port: %w", err)
		}
		log.Warn("No MIDI output; the prediction is only heard.", "err", err)
		return in, nil, nil
	}
	log.Infof("Picked output port: %v.", out)
	return in, out, nil
}

func Main() error {
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("invalid -log_level: %w", err)
	}
	log.SetLevel(level)

	useTUI := !*plain && term.IsTerminal(int(os.Stdout.Fd()))
	if *logFile != "" {
		f, err := os.Create(*logFile)
		if err != nil {
			return fmt.Errorf("could not create log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else if useTUI {
		log.SetOutput(io.Discard)
	}
	log.Infof("midipredict live %v.", version.Version())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	fsys := os.DirFS(cwd)

	config, err := file.ReadConfig(fsys, *c)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	options := &file.Options{}
	if *i != "" {
		options, err = file.ReadOptions(fsys, *i)
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
	}
	if *ref != "" {
		options.Reference = *ref
		options.ReferenceSHA256 = ""
	}
	err = options.WithDefaults().Validate()
	if err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	in, out, err := findPorts(options)
	if err != nil {
		return err
	}

	b := player.NewBackend(&player.Options{
		FSys:        fsys,
		Config:      config,
		Session:     options,
		InPort:      in,
		OutPort:     out,
		Audio:       *playAudio,
		AudioBuffer: *audioBuffer,
		Logger:      log.Default(),
	})

	var loopErr error
	loopDone := make(chan struct{})
	go func() {
		loopErr = b.Loop()
		b.Close()
		close(loopDone)
	}()

	if useTUI {
		_, err := tea.NewProgram(tui.NewModel(b.Commands, b.UIStates), tea.WithAltScreen()).Run()
		if *logFile == "" {
			log.SetOutput(os.Stderr)
		}
		if err != nil {
			b.Commands <- player.Command{Quit: true}
			<-loopDone
			return fmt.Errorf("status screen failed: %w", err)
		}
	} else {
		plainUI(b)
	}
	<-loopDone
	return loopErr
}

func main() {
	flag.Parse()
	err := Main()
	if errors.Is(err, player.SigIntError) {
		os.Exit(127)
	}
	if err != nil && !errors.Is(err, player.QuitError) {
		log.SetOutput(os.Stderr)
		log.Errorf("Exiting due to: %v.", err)
		os.Exit(1)
	}
}
