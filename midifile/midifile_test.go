package midifile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-lyre/timeline"
)

// writeSong builds a two-track file: a conductor track at 60 BPM and one
// named lead track with a program change and two notes.
func writeSong(t *testing.T) []byte {
	t.Helper()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(60))
	conductor.Close(0)
	require.NoError(t, s.Add(conductor))

	var lead smf.Track
	lead.Add(0, smf.MetaTrackSequenceName("Lead"))
	lead.Add(0, gomidi.ProgramChange(0, 46))
	lead.Add(0, gomidi.NoteOn(0, 60, 100))
	lead.Add(480, gomidi.NoteOff(0, 60))
	lead.Add(0, gomidi.ControlChange(0, 64, 127)) // ignored, delta kept
	lead.Add(480, gomidi.NoteOn(0, 64, 90))
	lead.Add(480, gomidi.NoteOn(0, 64, 0))
	lead.Close(0)
	require.NoError(t, s.Add(lead))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadDecodesMessages(t *testing.T) {
	src, err := Read(bytes.NewReader(writeSong(t)))
	require.NoError(t, err)

	assert.Equal(t, uint16(480), src.TicksPerBeat)
	require.Len(t, src.Tracks, 2)

	require.NotEmpty(t, src.Tracks[0])
	assert.Equal(t, timeline.Tempo, src.Tracks[0][0].Kind)
	assert.Equal(t, uint32(1000000), src.Tracks[0][0].Tempo)

	var kinds []timeline.MessageKind
	for _, m := range src.Tracks[1] {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []timeline.MessageKind{
		timeline.TrackName,
		timeline.ProgramChange,
		timeline.NoteOn,
		timeline.NoteOff,
		timeline.NoteOn,
		timeline.NoteOff,
	}, kinds)

	// control change dropped, its delta folded into the next note-on
	assert.Equal(t, uint32(480), src.Tracks[1][4].Delta)

	// 1440 ticks at 60 BPM
	assert.InDelta(t, float64(3*time.Second), float64(src.Length), float64(time.Millisecond))
}

func TestDecodedSourceBuildsTimeline(t *testing.T) {
	src, err := Read(bytes.NewReader(writeSong(t)))
	require.NoError(t, err)

	tl := timeline.New(src, timeline.BuildOptions{Tempo: timeline.TempoGlobal}, timeline.MergePolicy{})
	require.Len(t, tl.Tracks, 2)

	lead := tl.Tracks[1]
	assert.Equal(t, "Lead", lead.Name)
	assert.Equal(t, "Program 46", lead.Instrument)

	require.Len(t, tl.Notes, 2)
	assert.InDelta(t, 0, tl.Notes[0].TimeMs, 1e-6)
	assert.InDelta(t, 1000, tl.Notes[0].DurationMs, 1e-6)
	assert.InDelta(t, 2000, tl.Notes[1].TimeMs, 1e-6)
	assert.Equal(t, 64, tl.Notes[1].Pitch)
	assert.InDelta(t, 3000, tl.DurationMs, 1)
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mid")
	require.NoError(t, os.WriteFile(path, writeSong(t), 0o644))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, src.Tracks, 2)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.mid"))
	assert.Error(t, err)

	_, err = Read(bytes.NewReader([]byte("not a midi file")))
	assert.Error(t, err)
}
