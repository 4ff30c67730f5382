package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSingleNote(t *testing.T) {
	const n = 960
	src := Source{
		TicksPerBeat: 480,
		Tracks: [][]Message{{
			On(0, 60, 80),
			Off(n, 60),
		}},
		Length: 2 * time.Second,
	}

	tracks, dur := Build(src, BuildOptions{})
	require.Len(t, tracks, 1)
	require.Len(t, tracks[0].Notes, 1)

	note := tracks[0].Notes[0]
	assert.Equal(t, 0.0, note.TimeMs)
	assert.Equal(t, 60, note.Pitch)
	assert.Equal(t, 80, note.Velocity)
	// 960 ticks / 480 tpb * 0.5s = 1000ms
	assert.InDelta(t, float64(n)/480*DefaultTempo/1e6*1000, note.DurationMs, 1e-9)
	assert.Equal(t, 2000.0, dur)
	assert.Equal(t, "Track 1", tracks[0].Name)
	assert.True(t, tracks[0].Enabled)
}

func TestBuildTempoChangeIsNotRetroactive(t *testing.T) {
	src := Source{
		TicksPerBeat: 100,
		Tracks: [][]Message{{
			On(0, 60, 90),
			Off(100, 60),         // 500ms at 120 BPM
			SetTempo(0, 1000000), // 60 BPM from here
			On(0, 62, 90),        // starts at 500ms
			Off(100, 62),         // lasts 1000ms
		}},
	}

	tracks, _ := Build(src, BuildOptions{})
	notes := tracks[0].Notes
	require.Len(t, notes, 2)
	assert.InDelta(t, 0, notes[0].TimeMs, 1e-9)
	assert.InDelta(t, 500, notes[0].DurationMs, 1e-9)
	assert.InDelta(t, 500, notes[1].TimeMs, 1e-9)
	assert.InDelta(t, 1000, notes[1].DurationMs, 1e-9)
}

func TestBuildTempoScope(t *testing.T) {
	src := Source{
		TicksPerBeat: 100,
		Tracks: [][]Message{
			{SetTempo(0, 1000000)},
			{On(100, 60, 90), Off(100, 60)},
		},
	}

	perTrack, _ := Build(src, BuildOptions{Tempo: TempoPerTrack})
	global, _ := Build(src, BuildOptions{Tempo: TempoGlobal})

	assert.InDelta(t, 500, perTrack[1].Notes[0].TimeMs, 1e-9)
	assert.InDelta(t, 1000, global[1].Notes[0].TimeMs, 1e-9)
	assert.InDelta(t, 1000, global[1].Notes[0].DurationMs, 1e-9)
}

func TestBuildPairing(t *testing.T) {
	src := Source{
		TicksPerBeat: 480,
		Tracks: [][]Message{{
			Name(0, "Lead"),
			Program(0, 46),
			Off(0, 70),     // stray, dropped
			On(0, 60, 100),
			On(480, 60, 0), // zero-velocity note-on closes
			Off(0, 60),     // already closed, dropped
		}},
	}

	tracks, _ := Build(src, BuildOptions{})
	tr := tracks[0]
	assert.Equal(t, "Lead", tr.Name)
	assert.Equal(t, "Program 46", tr.Instrument)
	require.Len(t, tr.Notes, 1)
	assert.InDelta(t, 500, tr.Notes[0].DurationMs, 1e-9)
	assert.Equal(t, 100, tr.Notes[0].Velocity)
}

func TestBuildZeroResolution(t *testing.T) {
	src := Source{Tracks: [][]Message{{On(0, 60, 1), Off(DefaultTicksPerBeat, 60)}}}
	tracks, _ := Build(src, BuildOptions{})
	require.Len(t, tracks[0].Notes, 1)
	assert.InDelta(t, 500, tracks[0].Notes[0].DurationMs, 1e-9)
}

func TestMergeAnchorsToGroupStart(t *testing.T) {
	notes := []Note{{TimeMs: 0}, {TimeMs: 30}, {TimeMs: 70}}
	got := Merge(notes, 50)

	require.Len(t, got, 3)
	assert.Equal(t, 15.0, got[0].TimeMs)
	assert.Equal(t, 15.0, got[1].TimeMs)
	assert.Equal(t, 70.0, got[2].TimeMs)

	// input untouched
	assert.Equal(t, 30.0, notes[1].TimeMs)
}

func TestMergeChains(t *testing.T) {
	// 0,40,80,120 with threshold 50: {0,40} {80,120}
	notes := []Note{{TimeMs: 0}, {TimeMs: 40}, {TimeMs: 80}, {TimeMs: 120}}
	got := Merge(notes, 50)
	assert.Equal(t, []float64{20, 20, 100, 100}, times(got))

	assert.Nil(t, Merge(nil, 50))
}

func twoTrackTimeline(merge MergePolicy) *Timeline {
	src := Source{
		TicksPerBeat: 1000, // 1 tick = 0.5ms at 120 BPM
		Tracks: [][]Message{
			{On(0, 60, 1), Off(10, 60), On(190, 62, 1), Off(10, 62)},
			{On(0, 64, 1), Off(10, 64), On(50, 65, 1), Off(10, 65)},
		},
		Length: time.Second,
	}
	return New(src, BuildOptions{}, merge)
}

func TestRebuildOrderAndToggle(t *testing.T) {
	tl := twoTrackTimeline(MergePolicy{})

	// ties at 0ms keep track order: 60 before 64
	assert.Equal(t, []int{60, 64, 65, 62}, pitches(tl.Notes))
	assert.Equal(t, 1000.0, tl.DurationMs)
	assert.Equal(t, 4, tl.NoteCount())

	original := append([]Note(nil), tl.Notes...)

	require.True(t, tl.SetTrackEnabled(0, false))
	require.True(t, tl.SetTrackEnabled(1, false))
	assert.Empty(t, tl.Notes)

	tl.SetTrackEnabled(1, true)
	assert.Equal(t, []int{64, 65}, pitches(tl.Notes))

	tl.SetTrackEnabled(0, true)
	assert.Equal(t, original, tl.Notes)

	assert.False(t, tl.SetTrackEnabled(9, true))
	assert.Nil(t, tl.TrackByID(9))
}

func TestTimelineMergePolicy(t *testing.T) {
	tl := twoTrackTimeline(MergePolicy{})
	// 60@0 64@0 65@30 62@100
	assert.Equal(t, []float64{0, 0, 30, 100}, times(tl.Notes))

	tl.SetMerge(MergePolicy{Enabled: true, ThresholdMs: 50})
	assert.Equal(t, []float64{10, 10, 10, 100}, times(tl.Notes))

	tl.SetMerge(MergePolicy{Enabled: true, ThresholdMs: 0})
	assert.Equal(t, []float64{0, 0, 30, 100}, times(tl.Notes))

	// tracks keep their original times
	assert.Equal(t, 0.0, tl.Tracks[1].Notes[0].TimeMs)
}

func TestParseTempoScope(t *testing.T) {
	s, err := ParseTempoScope("track")
	require.NoError(t, err)
	assert.Equal(t, TempoPerTrack, s)

	s, err = ParseTempoScope("")
	require.NoError(t, err)
	assert.Equal(t, TempoGlobal, s)

	_, err = ParseTempoScope("bogus")
	assert.Error(t, err)
}

func times(notes []Note) []float64 {
	out := make([]float64, len(notes))
	for i, n := range notes {
		out[i] = n.TimeMs
	}
	return out
}

func pitches(notes []Note) []int {
	out := make([]int, len(notes))
	for i, n := range notes {
		out[i] = n.Pitch
	}
	return out
}
