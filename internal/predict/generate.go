package predict

import (
	"math"
)

// GeneratePrediction fills st.Prediction with the reference events due this block at density.
// density must be the one CheckIfPause scanned with, so that every emitted event went through the matcher.
// While paused it produces nothing and the reference position stands still.
func GeneratePrediction(st *State, paused bool, density float64) {
	st.Prediction.Clear()
	if paused {
		return
	}
	bs := float64(st.BlockSize)
	for _, ev := range st.RefWindow.Events() {
		t := float64(ev.Time) / density
		if t >= bs {
			break
		}
		st.Prediction.Add(int64(math.Floor(max(t, 0))), ev.Message)
		st.RecIndex++
	}
	st.RecPosition += bs * density
	st.ScannedIndex = max(st.ScannedIndex, st.RecIndex)
}
