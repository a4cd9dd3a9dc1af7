package file

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midipredict/internal/processor"
)

func midiBytes(t *testing.T, ch uint8) []byte {
	t.Helper()
	mid := smf.New()
	mid.TimeFormat = smf.MetricTicks(480)
	var tr smf.Track
	tr.Add(0, midi.NoteOn(ch, 60, 100))
	tr.Add(480, midi.NoteOff(ch, 60))
	tr.Add(0, midi.NoteOn(ch, 62, 100))
	tr.Add(480, midi.NoteOff(ch, 62))
	tr.Close(0)
	require.NoError(t, mid.Add(tr))
	var buf bytes.Buffer
	_, err := mid.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func testFS(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"ref.mid":  {Data: midiBytes(t, 0)},
		"live.mid": {Data: midiBytes(t, 3)},
		"config.yml": {Data: []byte(`
time_between: 0.1
lag: 0
match_note_offs: false
`)},
		"session.yml": {Data: []byte(`
reference: ref.mid
prepare:
  speed: 2
live: live.mid
block_size: 256
`)},
	}
}

func TestReadConfig(t *testing.T) {
	fsys := testFS(t)
	config, err := ReadConfig(fsys, "config.yml")
	require.NoError(t, err)
	assert.Equal(t, 0.1, config.TimeBetween)
	require.NotNil(t, config.Lag)
	assert.Equal(t, 0, *config.Lag)
	require.NotNil(t, config.MatchNoteOffs)
	assert.False(t, *config.MatchNoteOffs)
	assert.Nil(t, config.PlayLive)

	merged := config.WithDefaults()
	assert.Equal(t, 0, *merged.Lag)
	assert.Equal(t, 0.95, merged.Alpha)

	config, err = ReadConfig(fsys, "")
	require.NoError(t, err)
	assert.Nil(t, config.Lag)

	_, err = ReadConfig(fsys, "missing.yml")
	assert.Error(t, err)
}

func TestReadOptions(t *testing.T) {
	options, err := ReadOptions(testFS(t), "session.yml")
	require.NoError(t, err)
	assert.Equal(t, "ref.mid", options.Reference)
	assert.Equal(t, 2.0, options.Prepare.Speed)
	options = options.WithDefaults()
	assert.Equal(t, DefaultSampleRate, options.SampleRate)
	assert.Equal(t, 256, options.BlockSize)
	assert.NoError(t, options.Validate())

	assert.Error(t, (&Options{}).WithDefaults().Validate())
}

func TestWriteOptionsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := &Options{
		Reference:       "ref.mid",
		ReferenceSHA256: "abc",
		Prepare:         processor.Options{Transpose: 3},
		SampleRate:      44100,
	}
	require.NoError(t, WriteOptions(filepath.Join(dir, "out.yml"), want))
	got, err := ReadOptions(os.DirFS(dir), "out.yml")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadReference(t *testing.T) {
	fsys := testFS(t)
	options, err := ReadOptions(fsys, "session.yml")
	require.NoError(t, err)
	options = options.WithDefaults()

	seq, err := LoadReference(fsys, options)
	require.NoError(t, err)
	require.Equal(t, 4, seq.Len())
	// Half a second per beat at the default tempo, doubled speed.
	assert.Equal(t, int64(12000), seq.At(1).Time)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256(fsys["ref.mid"].Data)), options.ReferenceSHA256)

	_, err = LoadReference(fsys, options)
	assert.NoError(t, err, "filled in checksum matches")

	options.ReferenceSHA256 = "0000"
	_, err = LoadReference(fsys, options)
	assert.ErrorContains(t, err, "mismatching checksum")
}

func TestLoadLive(t *testing.T) {
	fsys := testFS(t)
	options := (&Options{Reference: "ref.mid", Live: "live.mid"}).WithDefaults()
	seq, err := LoadLive(fsys, options)
	require.NoError(t, err)
	require.Equal(t, 4, seq.Len())
	assert.Equal(t, int64(24000), seq.At(1).Time)
	var ch uint8
	assert.True(t, seq.At(0).Message.GetChannel(&ch))
	assert.Equal(t, uint8(3), ch)

	options.Live = ""
	seq, err = LoadLive(fsys, options)
	require.NoError(t, err)
	assert.True(t, seq.At(0).Message.GetChannel(&ch))
	assert.Equal(t, uint8(0), ch)
}

func TestPanicKeys(t *testing.T) {
	keys, err := PanicKeys(testFS(t), &Options{Reference: "ref.mid"})
	require.NoError(t, err)
	assert.Equal(t, []processor.Key{{Channel: 0, Note: 60}, {Channel: 0, Note: 62}}, keys)
}
