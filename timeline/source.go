package timeline

import "time"

// DefaultTempo is 120 BPM in microseconds per beat
const DefaultTempo = 500000

// MessageKind identifies a decoded message
type MessageKind uint8

const (
	NoteOn MessageKind = iota
	NoteOff
	Tempo
	TrackName
	ProgramChange
)

func (k MessageKind) String() string {
	switch k {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	case Tempo:
		return "set_tempo"
	case TrackName:
		return "track_name"
	case ProgramChange:
		return "program_change"
	}
	return "unknown"
}

// Message is one decoded, time-tagged track event.
// Only the fields relevant to Kind are set.
type Message struct {
	Delta    uint32 // ticks since previous message in the same track
	Kind     MessageKind
	Pitch    uint8
	Velocity uint8
	Tempo    uint32 // microseconds per beat
	Text     string
	Program  uint8
}

// Source is what a decoder hands to Build
type Source struct {
	TicksPerBeat uint16
	Tracks       [][]Message
	Length       time.Duration // total file length, authoritative
}

// Message constructors, mostly for decoders and tests

func On(delta uint32, pitch, velocity uint8) Message {
	return Message{Delta: delta, Kind: NoteOn, Pitch: pitch, Velocity: velocity}
}

func Off(delta uint32, pitch uint8) Message {
	return Message{Delta: delta, Kind: NoteOff, Pitch: pitch}
}

func SetTempo(delta, microsPerBeat uint32) Message {
	return Message{Delta: delta, Kind: Tempo, Tempo: microsPerBeat}
}

func Name(delta uint32, text string) Message {
	return Message{Delta: delta, Kind: TrackName, Text: text}
}

func Program(delta uint32, program uint8) Message {
	return Message{Delta: delta, Kind: ProgramChange, Program: program}
}
