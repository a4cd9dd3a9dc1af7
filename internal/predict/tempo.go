package predict

// UpdateNoteDensity feeds one block's note counts into the tempo estimate.
//
// The estimate follows the ratio of live to predicted notes over the window,
// as a multiplicative update of the current density.
// A window without predicted notes counts as ratio 1.
func UpdateNoteDensity(st *State, config *Config, predCount, liveCount int) float64 {
	ts := &st.Tempo
	ts.NumPredicted += predCount - ts.PrevPred[ts.Cursor]
	ts.PrevPred[ts.Cursor] = predCount
	ts.NumLive += liveCount - ts.PrevLive[ts.Cursor]
	ts.PrevLive[ts.Cursor] = liveCount
	ts.Cursor = (ts.Cursor + 1) % len(ts.PrevPred)

	ratio := 1.0
	if ts.NumPredicted > 0 {
		ratio = float64(ts.NumLive) / float64(ts.NumPredicted)
	}
	d := config.Alpha*ts.Density + (1-config.Alpha)*ts.Density*ratio
	ts.Density = min(max(d, config.MinDensity), config.MaxDensity)
	return ts.Density
}
