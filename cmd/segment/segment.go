package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/divVerent/midipredict/internal/file"
	"github.com/divVerent/midipredict/internal/processor"
	"github.com/divVerent/midipredict/internal/sequence"
)

var (
	i           = flag.String("i", "", "session file name (YAML)")
	ref         = flag.String("ref", "", "reference MIDI file; overrides the session")
	blockSize   = flag.Int("block_size", 0, "block size in samples; overrides the session")
	addChecksum = flag.Bool("add_checksum", false, "automatically add checksum to the session YAML")
	events      = flag.Bool("events", true, "list the events of every block")
)

func dumpBlocks(blocks []*sequence.Buffer, options *file.Options) {
	nonEmpty := 0
	for index, buf := range blocks {
		if buf.Len() == 0 {
			continue
		}
		nonEmpty++
		if !*events {
			continue
		}
		msgs := make([]string, 0, buf.Len())
		for _, ev := range buf.Events() {
			msgs = append(msgs, fmt.Sprintf("+%d %v", ev.Time, ev.Message))
		}
		start := sequence.BlockTime(index, options.BlockSize, float64(options.SampleRate))
		fmt.Printf("block %d @ %v: %s\n", index, start, strings.Join(msgs, ", "))
	}
	log.Infof("%d blocks of %d samples, %d with events.", len(blocks), options.BlockSize, nonEmpty)
}

func Main() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %v", err)
	}
	fsys := os.DirFS(cwd)

	options := &file.Options{}
	if *i != "" {
		options, err = file.ReadOptions(fsys, *i)
		if err != nil {
			return fmt.Errorf("failed to read options: %w", err)
		}
	}
	if *ref != "" {
		options.Reference = *ref
		options.ReferenceSHA256 = ""
	}
	wantChecksum := options.ReferenceSHA256 == ""
	session := options.WithDefaults()
	if *blockSize != 0 {
		session.BlockSize = *blockSize
	}
	err = session.Validate()
	if err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	mid, _, err := file.ReadMIDI(fsys, session.Reference, session.ReferenceSHA256)
	if err != nil {
		return err
	}
	processor.DumpTempo(log.Default(), "input", mid)
	prepared, err := processor.Prepare(mid, &session.Prepare)
	if err != nil {
		return fmt.Errorf("failed to prepare: %w", err)
	}
	processor.DumpTempo(log.Default(), "prepared", prepared)

	seq, err := file.LoadReference(fsys, session)
	if err != nil {
		return fmt.Errorf("failed to load reference: %w", err)
	}
	dumpBlocks(sequence.Segment(seq, session.BlockSize), session)

	if *addChecksum && wantChecksum && *i != "" && *ref == "" {
		options.ReferenceSHA256 = session.ReferenceSHA256
		err := file.WriteOptions(*i, options)
		if err != nil {
			return fmt.Errorf("failed to write %v: %v", *i, err)
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
