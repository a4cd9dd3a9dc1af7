package processor

import (
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DumpTempo logs the tempo map and note counts of the file in concise form.
func DumpTempo(logger *log.Logger, prefix string, mid *smf.SMF) {
	notes := map[uint8]int{}
	var last int64
	ForEachEventWithTime(mid, func(tick int64, track int, msg smf.Message) error {
		last = tick
		var bpm float64
		if msg.GetMetaTempo(&bpm) {
			logger.Infof("%s: @ %d (%v): tempo is %f bpm.", prefix, tick, at(mid, tick), bpm)
			return nil
		}
		var ch, key uint8
		if msg.GetNoteStart(&ch, &key, nil) {
			notes[ch]++
		}
		return nil
	})
	for ch := range uint8(16) {
		if notes[ch] == 0 {
			continue
		}
		plural := "s"
		if notes[ch] == 1 {
			plural = ""
		}
		logger.Infof("%s: channel %d: %d note%s.", prefix, ch+1, notes[ch], plural)
	}
	logger.Infof("%s: @ %d (%v): end.", prefix, last, at(mid, last))
}

func at(mid *smf.SMF, tick int64) time.Duration {
	return time.Duration(mid.TimeAt(tick)) * time.Microsecond
}
