package timeline

import (
	"fmt"
	"sort"
)

// DefaultTicksPerBeat stands in for a zero resolution
const DefaultTicksPerBeat = 480

// tempoPoint is a tempo in force from tick on; ms is the time at tick
type tempoPoint struct {
	tick  uint64
	tempo uint32
	ms    float64
}

// TempoMap converts absolute ticks to milliseconds, piecewise per tempo segment
type TempoMap struct {
	tpb    float64
	points []tempoPoint
}

type tempoChange struct {
	tick  uint64
	tempo uint32
}

func newTempoMap(ticksPerBeat uint16, changes []tempoChange) *TempoMap {
	if ticksPerBeat == 0 {
		ticksPerBeat = DefaultTicksPerBeat
	}
	tm := &TempoMap{
		tpb:    float64(ticksPerBeat),
		points: []tempoPoint{{tick: 0, tempo: DefaultTempo}},
	}
	for _, c := range changes {
		last := &tm.points[len(tm.points)-1]
		if c.tick == last.tick {
			last.tempo = c.tempo
			continue
		}
		tm.points = append(tm.points, tempoPoint{
			tick:  c.tick,
			tempo: c.tempo,
			ms:    last.ms + tm.span(c.tick-last.tick, last.tempo),
		})
	}
	return tm
}

// span is the length in ms of ticks at a fixed tempo
func (tm *TempoMap) span(ticks uint64, tempo uint32) float64 {
	return float64(ticks) / tm.tpb * float64(tempo) / 1e6 * 1000
}

// Ms converts an absolute tick to milliseconds
func (tm *TempoMap) Ms(tick uint64) float64 {
	i := sort.Search(len(tm.points), func(i int) bool {
		return tm.points[i].tick > tick
	}) - 1
	p := tm.points[i]
	return p.ms + tm.span(tick-p.tick, p.tempo)
}

// trackTempoChanges lists tempo changes of one track by absolute tick
func trackTempoChanges(msgs []Message) []tempoChange {
	var out []tempoChange
	var tick uint64
	for _, m := range msgs {
		tick += uint64(m.Delta)
		if m.Kind == Tempo && m.Tempo > 0 {
			out = append(out, tempoChange{tick: tick, tempo: m.Tempo})
		}
	}
	return out
}

// GlobalTempoMap merges tempo changes from all tracks by absolute tick.
// Simultaneous changes resolve in track order.
func GlobalTempoMap(src Source) *TempoMap {
	var all []tempoChange
	for _, msgs := range src.Tracks {
		all = append(all, trackTempoChanges(msgs)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].tick < all[j].tick })
	return newTempoMap(src.TicksPerBeat, all)
}

type openNote struct {
	startMs  float64
	velocity int
}

// Build turns decoded track messages into tracks of paired notes.
// The returned duration is src.Length in ms, regardless of note content.
func Build(src Source, opts BuildOptions) ([]*Track, float64) {
	var global *TempoMap
	if opts.Tempo == TempoGlobal {
		global = GlobalTempoMap(src)
	}

	tracks := make([]*Track, 0, len(src.Tracks))
	for idx, msgs := range src.Tracks {
		tm := global
		if tm == nil {
			tm = newTempoMap(src.TicksPerBeat, trackTempoChanges(msgs))
		}
		tracks = append(tracks, buildTrack(idx, msgs, tm))
	}
	return tracks, float64(src.Length) / 1e6
}

func buildTrack(idx int, msgs []Message, tm *TempoMap) *Track {
	t := &Track{
		ID:      idx,
		Name:    fmt.Sprintf("Track %d", idx+1),
		Enabled: true,
	}

	open := make(map[uint8]openNote)
	var tick uint64
	for _, m := range msgs {
		tick += uint64(m.Delta)

		switch m.Kind {
		case TrackName:
			if m.Text != "" {
				t.Name = m.Text
			}
		case ProgramChange:
			t.Instrument = fmt.Sprintf("Program %d", m.Program)
		case NoteOn, NoteOff:
			now := tm.Ms(tick)
			if m.Kind == NoteOn && m.Velocity > 0 {
				open[m.Pitch] = openNote{startMs: now, velocity: int(m.Velocity)}
				continue
			}
			on, ok := open[m.Pitch]
			if !ok {
				// stray note-off
				continue
			}
			delete(open, m.Pitch)
			t.Notes = append(t.Notes, Note{
				TimeMs:     on.startMs,
				Pitch:      int(m.Pitch),
				Velocity:   on.velocity,
				DurationMs: now - on.startMs,
				Track:      idx,
			})
		}
	}
	return t
}
