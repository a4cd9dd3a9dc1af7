package player

import (
	"fmt"
	"regexp"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	badPortsRE       = regexp.MustCompile(`\bMidi Through\b|\bPipeWire-System\b|\bPipeWire-RT-Event\b`)
	usbPortsRE       = regexp.MustCompile(`\bUSB|\bUM-`)
	softSynthPortsRE = regexp.MustCompile(`\bFLUID\b|\bSynth\b|\bTiMidity\b`)
)

type port interface {
	String() string
	Number() int
}

// comparePorts ranks USB ports first and software synths last.
func comparePorts[P port](a, b P) int {
	aUSB := usbPortsRE.MatchString(a.String())
	bUSB := usbPortsRE.MatchString(b.String())
	if aUSB != bUSB {
		if aUSB {
			return -1
		}
		return 1
	}
	aSoftSynth := softSynthPortsRE.MatchString(a.String())
	bSoftSynth := softSynthPortsRE.MatchString(b.String())
	if aSoftSynth != bSoftSynth {
		if aSoftSynth {
			return 1
		}
		return -1
	}
	// Otherwise sort arbitrarily.
	return a.Number() - b.Number()
}

// findBestPort picks a port matching pattern, else the one named preferred, else the best ranked one.
func findBestPort[P port](ports []P, pattern, preferred string) (P, error) {
	var zero P
	var goodPorts []P
	if pattern != "" {
		portRE, err := regexp.Compile(pattern)
		if err != nil {
			return zero, fmt.Errorf("failed to compile port RE %v: %w", pattern, err)
		}
		for _, p := range ports {
			if portRE.MatchString(p.String()) {
				goodPorts = append(goodPorts, p)
			}
		}
	}
	if len(goodPorts) == 0 && preferred != "" {
		for _, p := range ports {
			if p.String() == preferred {
				goodPorts = append(goodPorts, p)
			}
		}
	}
	if len(goodPorts) == 0 {
		for _, p := range ports {
			if !badPortsRE.MatchString(p.String()) {
				goodPorts = append(goodPorts, p)
			}
		}
	}
	if len(goodPorts) == 0 {
		return zero, fmt.Errorf("no selected port found")
	}
	return slices.MinFunc(goodPorts, comparePorts[P]), nil
}

// FindBestOutPort returns where to send the prediction.
func FindBestOutPort(pattern, preferred string) (drivers.Out, error) {
	return findBestPort[drivers.Out](midi.GetOutPorts(), pattern, preferred)
}

// FindBestInPort returns where the performer plays.
func FindBestInPort(pattern, preferred string) (drivers.In, error) {
	return findBestPort[drivers.In](midi.GetInPorts(), pattern, preferred)
}
