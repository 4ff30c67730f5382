package midifile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-lyre/debug"
	"go-lyre/timeline"
)

// ErrNoTimeFormat is returned for files without metric (ticks per beat) timing
var ErrNoTimeFormat = errors.New("midifile: SMPTE time format not supported")

// Load reads a standard MIDI file from disk
func Load(path string) (timeline.Source, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return timeline.Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	src, err := Decode(s)
	if err != nil {
		return timeline.Source{}, fmt.Errorf("decode %s: %w", path, err)
	}
	debug.Log("midifile", "loaded %s: tracks=%d tpb=%d length=%s", path, len(src.Tracks), src.TicksPerBeat, src.Length)
	return src, nil
}

// Read decodes a standard MIDI file from r
func Read(r io.Reader) (timeline.Source, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return timeline.Source{}, fmt.Errorf("read smf: %w", err)
	}
	return Decode(s)
}

// Decode converts a parsed SMF into the messages the timeline builder uses.
// Messages the builder does not care about are dropped, their delta ticks
// folded into the next kept message.
func Decode(s *smf.SMF) (timeline.Source, error) {
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return timeline.Source{}, ErrNoTimeFormat
	}

	src := timeline.Source{
		TicksPerBeat: ticks.Resolution(),
		Tracks:       make([][]timeline.Message, 0, len(s.Tracks)),
	}

	var lastTick uint64
	for _, tr := range s.Tracks {
		msgs, total := decodeTrack(tr)
		src.Tracks = append(src.Tracks, msgs)
		if total > lastTick {
			lastTick = total
		}
	}

	ms := timeline.GlobalTempoMap(src).Ms(lastTick)
	src.Length = time.Duration(ms * float64(time.Millisecond))
	return src, nil
}

// decodeTrack returns the kept messages and the track's total length in ticks
func decodeTrack(tr smf.Track) ([]timeline.Message, uint64) {
	var (
		out     []timeline.Message
		pending uint32
		total   uint64
	)

	for _, ev := range tr {
		pending += ev.Delta
		total += uint64(ev.Delta)

		m, ok := convert(ev.Message)
		if !ok {
			continue
		}
		m.Delta = pending
		pending = 0
		out = append(out, m)
	}
	return out, total
}

func convert(msg smf.Message) (timeline.Message, bool) {
	var (
		bpm               float64
		text              string
		ch, key, vel, prg uint8
	)

	if msg.GetMetaTempo(&bpm) {
		if bpm <= 0 {
			return timeline.Message{}, false
		}
		return timeline.Message{
			Kind:  timeline.Tempo,
			Tempo: uint32(math.Round(60_000_000 / bpm)),
		}, true
	}
	if msg.GetMetaTrackName(&text) {
		return timeline.Message{Kind: timeline.TrackName, Text: text}, true
	}

	m := gomidi.Message(msg)
	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		return timeline.Message{Kind: timeline.NoteOn, Pitch: key, Velocity: vel}, true
	case m.GetNoteEnd(&ch, &key):
		return timeline.Message{Kind: timeline.NoteOff, Pitch: key}, true
	case m.GetProgramChange(&ch, &prg):
		return timeline.Message{Kind: timeline.ProgramChange, Program: prg}, true
	}
	return timeline.Message{}, false
}
