package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/divVerent/midipredict/internal/audio"
	"github.com/divVerent/midipredict/internal/file"
	"github.com/divVerent/midipredict/internal/predict"
	"github.com/divVerent/midipredict/internal/sequence"
	"github.com/divVerent/midipredict/internal/synth"
	"github.com/divVerent/midipredict/internal/version"
)

var (
	c           = flag.String("c", "", "config file name (YAML); empty uses the defaults")
	i           = flag.String("i", "", "session file name (YAML)")
	ref         = flag.String("ref", "", "reference MIDI file; overrides the session")
	live        = flag.String("live", "", "performance MIDI file to simulate; overrides the session")
	o           = flag.String("o", "", "output MIDI file for the delayed prediction; overrides the session")
	wavOut      = flag.String("wav", "", "output WAV file for the synthesized audio; overrides the session")
	maxSeconds  = flag.Float64("max_seconds", 0, "stop after this much audio; 0 picks a limit from the input lengths")
	addChecksum = flag.Bool("add_checksum", false, "automatically add the reference checksum to the session YAML")
	logLevel    = flag.String("log_level", "info", "log level (debug traces every block)")
)

// simulation collects what the engine hands back, in absolute samples.
type simulation struct {
	engine    *predict.Engine
	blockSize int64
	events    []sequence.Event
	paused    bool
}

func (s *simulation) after(index int, midiIO *sequence.Buffer) {
	base := int64(index) * s.blockSize
	for _, ev := range midiIO.Events() {
		s.events = append(s.events, sequence.Event{Time: base + ev.Time, Message: ev.Message})
	}
	snap := s.engine.Snapshot()
	if snap.Paused != s.paused {
		s.paused = snap.Paused
		if s.paused {
			log.Info("Waiting for the performer.", "block", index, "position", snap.Position, "pending", snap.PendingPredicted)
		} else {
			log.Info("Following again.", "block", index, "position", snap.Position, "density", snap.Density)
		}
	}
}

func readSession(fsys fs.FS) (*file.Options, error) {
	options := &file.Options{}
	if *i != "" {
		var err error
		options, err = file.ReadOptions(fsys, *i)
		if err != nil {
			return nil, fmt.Errorf("failed to read session: %w", err)
		}
	}
	if *ref != "" {
		options.Reference = *ref
		options.ReferenceSHA256 = ""
	}
	if *live != "" {
		options.Live = *live
	}
	if *o != "" {
		options.OutputMIDI = *o
	}
	if *wavOut != "" {
		options.OutputWAV = *wavOut
	}
	return options, nil
}

func writeOutputs(options *file.Options, sim *simulation, samples []float32) error {
	if options.OutputMIDI != "" {
		mid := sequence.ToSMF(sim.events, float64(options.SampleRate))
		err := mid.WriteFile(options.OutputMIDI)
		if err != nil {
			return fmt.Errorf("failed to write %v: %w", options.OutputMIDI, err)
		}
		log.Infof("Wrote %d events to %v.", len(sim.events), options.OutputMIDI)
	}
	if options.OutputWAV != "" {
		f, err := os.Create(options.OutputWAV)
		if err != nil {
			return fmt.Errorf("failed to create %v: %w", options.OutputWAV, err)
		}
		err = audio.WriteWAV(f, samples, options.SampleRate)
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("failed to write %v: %w", options.OutputWAV, err)
		}
		log.Infof("Wrote %d frames to %v.", len(samples)/audio.Channels, options.OutputWAV)
	}
	return nil
}

func Main() error {
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("invalid -log_level: %w", err)
	}
	log.SetLevel(level)
	log.Debugf("midipredict %v.", version.Version())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	fsys := os.DirFS(cwd)

	config, err := file.ReadConfig(fsys, *c)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	options, err := readSession(fsys)
	if err != nil {
		return err
	}
	wantChecksum := options.ReferenceSHA256 == ""
	options = options.WithDefaults()
	err = options.Validate()
	if err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	refSeq, err := file.LoadReference(fsys, options)
	if err != nil {
		return fmt.Errorf("failed to load reference: %w", err)
	}
	liveSeq, err := file.LoadLive(fsys, options)
	if err != nil {
		return fmt.Errorf("failed to load performance: %w", err)
	}
	log.Infof("Following %d reference events with %d performed events.", refSeq.Len(), liveSeq.Len())

	engine, err := predict.NewEngine(config, refSeq, predict.SegmentedSource(sequence.Segment(liveSeq, options.BlockSize)), synth.NewSine(synth.DefaultParams()))
	if err != nil {
		return err
	}
	engine.SetLogger(log.Default())
	engine.PrepareToPlay(float64(options.SampleRate), options.BlockSize)
	defer engine.ReleaseResources()

	limit := int(*maxSeconds * float64(options.SampleRate))
	if limit <= 0 {
		// Long enough for the slowest tempo after the performance has ended. A stalled engine finishes earlier.
		limit = int(liveSeq.End()) + int(float64(refSeq.End())/engine.Config().MinDensity) + 2*options.SampleRate
	}

	sim := &simulation{
		engine:    engine,
		blockSize: int64(options.BlockSize),
	}
	src := audio.NewBlockSource(engine, options.BlockSize)
	src.After = sim.after
	samples := audio.Render(src, options.BlockSize, limit)
	snap := engine.Snapshot()
	switch {
	case snap.Stalled:
		log.Warn("The performance ended while a note was still expected.", "predicted", snap.RecIndex, "of", snap.RecLen, "pending", snap.PendingPredicted)
	case !snap.Finished:
		log.Warn("Reference not finished within the time limit.", "predicted", snap.RecIndex, "of", snap.RecLen, "pending", snap.PendingPredicted)
	}
	log.Info("Done.", "blocks", src.Blocks(), "density", snap.Density, "dropped", snap.Dropped)

	err = writeOutputs(options, sim, samples)
	if err != nil {
		return err
	}

	if *addChecksum && wantChecksum && *i != "" {
		// Only the checksum is new; the file keeps the session as written.
		session, err := file.ReadOptions(fsys, *i)
		if err != nil {
			return fmt.Errorf("failed to reread %v: %w", *i, err)
		}
		if session.Reference != options.Reference {
			return errors.New("cannot add checksum: -ref overrides the session's reference")
		}
		session.ReferenceSHA256 = options.ReferenceSHA256
		err = file.WriteOptions(*i, session)
		if err != nil {
			return fmt.Errorf("failed to write %v: %w", *i, err)
		}
	}
	return nil
}

func main() {
	flag.Parse()
	err := Main()
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
