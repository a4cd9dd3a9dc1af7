package sequence

import (
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// OutputTicks is the resolution of written files.
	OutputTicks = smf.MetricTicks(960)

	// OutputBPM is the tempo of written files.
	OutputBPM = 120.0
)

func samplesToDuration(t int64, sampleRate float64) time.Duration {
	return time.Duration(float64(t) / sampleRate * float64(time.Second))
}

// BlockTime returns when block index starts.
func BlockTime(index, blockSize int, sampleRate float64) time.Duration {
	return samplesToDuration(int64(index)*int64(blockSize), sampleRate)
}

// ToSMF writes time ordered events in samples into a single track file.
func ToSMF(events []Event, sampleRate float64) *smf.SMF {
	mid := smf.New()
	mid.TimeFormat = OutputTicks
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(OutputBPM))
	var prev uint32
	for _, ev := range events {
		tick := OutputTicks.Ticks(OutputBPM, samplesToDuration(max(ev.Time, 0), sampleRate))
		if tick < prev {
			tick = prev
		}
		tr.Add(tick-prev, ev.Message)
		prev = tick
	}
	tr.Close(0)
	mid.Add(tr)
	return mid
}
