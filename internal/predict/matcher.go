package predict

import (
	"math"

	"gitlab.com/gomidi/midi/v2"
)

// noteKind returns the key of a note start or end, and whether it is an end.
func noteKind(msg midi.Message) (key uint8, end, ok bool) {
	var ch uint8
	if msg.GetNoteStart(&ch, &key, nil) {
		return key, false, true
	}
	if msg.GetNoteEnd(&ch, &key) {
		return key, true, true
	}
	return 0, false, false
}

// searchLive looks for a live note matching a predicted one at block relative time predTime.
// Live notes more than timeBetween after predTime are not considered yet.
// The first match wins and is removed from the live queue.
func searchLive(st *State, key uint8, end bool, predTime int64) bool {
	q := st.LiveQueue
	for i := 0; i < q.Len(); i++ {
		if q.Relative(i) > predTime+st.timeBetween {
			continue
		}
		it := q.At(i)
		if it.Key == key && it.End == end {
			q.Remove(i)
			return true
		}
	}
	return false
}

// CheckIfPause matches this block's live notes against the predicted notes and decides whether to pause.
// It returns true while any predicted note is still waiting for its live counterpart.
func CheckIfPause(st *State) bool {
	wasPaused := st.Paused
	block := st.LiveIndex - 1

	st.LiveQueue.Advance(st.BlockSize)
	if !wasPaused {
		// The predicted clock stands still while paused.
		st.PredQueue.Advance(st.BlockSize)
	}
	for _, ev := range st.Live.Events() {
		key, end, ok := noteKind(ev.Message)
		if !ok || (end && !st.matchNoteOffs) {
			continue
		}
		if !st.LiveQueue.Push(ev.Time, key, end, block) {
			st.logger.Warn("Live note queue full, dropped oldest note.", "block", block)
		}
	}
	if st.maxPending > 0 {
		if n := st.LiveQueue.DropBefore(block - st.maxPending + 1); n > 0 {
			st.logger.Debug("Dropped stale live notes.", "block", block, "count", n)
		}
	}

	// Retry what is still pending from earlier blocks.
	pause := false
	for st.PredQueue.Len() > 0 {
		it := st.PredQueue.At(0)
		if !searchLive(st, it.Key, it.End, st.PredQueue.Relative(0)) {
			pause = true
			break
		}
		st.PredQueue.Remove(0)
	}

	st.PredictedStarts = 0
	if !pause {
		events := st.RefWindow.Events()
		bs := float64(st.BlockSize)
		for j := max(st.ScannedIndex-st.RecIndex, 0); j < len(events); j++ {
			t := float64(events[j].Time) / st.Tempo.Density
			if t >= bs {
				break
			}
			st.ScannedIndex = st.RecIndex + j + 1
			key, end, ok := noteKind(events[j].Message)
			if !ok {
				continue
			}
			if !end {
				st.PredictedStarts++
			} else if !st.matchNoteOffs {
				continue
			}
			predTime := int64(math.Floor(max(t, 0)))
			if searchLive(st, key, end, predTime) {
				continue
			}
			if !st.PredQueue.Push(predTime, key, end, block) {
				st.logger.Warn("Predicted note queue full, dropped oldest note.", "block", block)
			}
		}
		pause = st.PredQueue.Len() > 0
	}

	st.Paused = pause
	return pause
}
