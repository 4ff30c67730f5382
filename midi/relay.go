package midi

import (
	"go-lyre/debug"
	"go-lyre/keymap"
	"go-lyre/output"
)

// Relay plays incoming notes on the lyre: each note goes through the mapper
// with octave folding and the resulting key is sent to sink.
func Relay(mapper *keymap.Mapper, sink output.Sink) NoteHandler {
	return func(ev NoteEvent) {
		key, ok := mapper.Resolve(int(ev.Note), true)
		if !ok {
			debug.Log("live", "%s: note %d has no key", ev.Port, ev.Note)
			return
		}
		sink.Send(key)
	}
}
