package timeline

import (
	"fmt"
	"sort"
)

// Note is a single timed note. Values are copied, never edited in place.
type Note struct {
	TimeMs     float64 `json:"time_ms"`
	Pitch      int     `json:"pitch"`
	Velocity   int     `json:"velocity"`
	DurationMs float64 `json:"duration_ms"`
	Track      int     `json:"track"`
}

// Track holds one file track's notes in file order
type Track struct {
	ID         int
	Name       string
	Instrument string
	Enabled    bool
	Notes      []Note
}

// MergePolicy controls the merge-nearby-notes pass
type MergePolicy struct {
	Enabled     bool
	ThresholdMs float64
}

// DefaultMergeThresholdMs is the original merge window
const DefaultMergeThresholdMs = 50

func (p MergePolicy) active() bool {
	return p.Enabled && p.ThresholdMs > 0
}

// TempoScope selects how tempo changes propagate between tracks
type TempoScope int

const (
	// TempoPerTrack keeps a running tempo per track, starting at DefaultTempo
	TempoPerTrack TempoScope = iota
	// TempoGlobal applies tempo changes from any track to all tracks by absolute tick
	TempoGlobal
)

// ParseTempoScope accepts "track" or "global"
func ParseTempoScope(s string) (TempoScope, error) {
	switch s {
	case "track", "per-track":
		return TempoPerTrack, nil
	case "global", "":
		return TempoGlobal, nil
	}
	return TempoGlobal, fmt.Errorf("unknown tempo scope %q", s)
}

// BuildOptions tunes Build
type BuildOptions struct {
	Tempo TempoScope
}

// Timeline is the loaded track set plus the derived, time-ordered note list.
// It is not safe for concurrent use; the player serializes access.
type Timeline struct {
	Tracks     []*Track
	Notes      []Note // enabled tracks, ascending TimeMs, stable
	DurationMs float64
	merge      MergePolicy
}

// New builds a timeline from decoded messages
func New(src Source, opts BuildOptions, merge MergePolicy) *Timeline {
	tracks, dur := Build(src, opts)
	tl := &Timeline{
		Tracks:     tracks,
		DurationMs: dur,
		merge:      merge,
	}
	tl.rebuild()
	return tl
}

func (tl *Timeline) rebuild() {
	tl.Notes = Rebuild(tl.Tracks, tl.merge)
}

// Merge returns the current merge policy
func (tl *Timeline) Merge() MergePolicy {
	return tl.merge
}

// SetMerge changes the merge policy and rebuilds
func (tl *Timeline) SetMerge(p MergePolicy) {
	tl.merge = p
	tl.rebuild()
}

// TrackByID finds a track
func (tl *Timeline) TrackByID(id int) *Track {
	for _, t := range tl.Tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// SetTrackEnabled toggles a track and rebuilds. Returns false for unknown ids.
func (tl *Timeline) SetTrackEnabled(id int, enabled bool) bool {
	t := tl.TrackByID(id)
	if t == nil {
		return false
	}
	t.Enabled = enabled
	tl.rebuild()
	return true
}

// NoteCount returns the number of notes across all tracks, enabled or not
func (tl *Timeline) NoteCount() int {
	n := 0
	for _, t := range tl.Tracks {
		n += len(t.Notes)
	}
	return n
}

// Rebuild collects notes from enabled tracks, in track order, stable-sorted
// by time, then applies the merge pass. The result is a fresh slice.
func Rebuild(tracks []*Track, merge MergePolicy) []Note {
	var notes []Note
	for _, t := range tracks {
		if t.Enabled {
			notes = append(notes, t.Notes...)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].TimeMs < notes[j].TimeMs
	})
	if merge.active() {
		notes = Merge(notes, merge.ThresholdMs)
	}
	return notes
}

// Merge snaps near-simultaneous notes together. A group starts at a note and
// takes every following note within thresholdMs of that first note; each
// group's notes get the group's mean time. The input must be time-sorted and
// is left untouched.
func Merge(notes []Note, thresholdMs float64) []Note {
	if len(notes) == 0 {
		return nil
	}
	out := make([]Note, len(notes))
	copy(out, notes)

	flush := func(start, end int) {
		sum := 0.0
		for _, n := range out[start:end] {
			sum += n.TimeMs
		}
		avg := sum / float64(end-start)
		for i := start; i < end; i++ {
			out[i].TimeMs = avg
		}
	}

	start := 0
	for i := 1; i < len(out); i++ {
		if out[i].TimeMs-out[start].TimeMs > thresholdMs {
			flush(start, i)
			start = i
		}
	}
	flush(start, len(out))
	return out
}
