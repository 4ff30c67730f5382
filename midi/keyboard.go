package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Keyboard is an open MIDI input forwarding note-ons to a handler
type Keyboard struct {
	id   string
	stop func()
	once sync.Once
}

// OpenKeyboard starts listening on in
func OpenKeyboard(id string, in drivers.In, h NoteHandler) (*Keyboard, error) {
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		if ev, ok := noteOn(id, msg); ok {
			h(ev)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", id, err)
	}
	return &Keyboard{id: id, stop: stop}, nil
}

// noteOn extracts a sounding note-on; velocity 0 counts as note-off
func noteOn(port string, msg gomidi.Message) (NoteEvent, bool) {
	var channel, note, velocity uint8
	if msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0 {
		return NoteEvent{Port: port, Note: note, Velocity: velocity, Channel: channel}, true
	}
	return NoteEvent{}, false
}

func (kb *Keyboard) ID() string {
	return kb.id
}

func (kb *Keyboard) Close() error {
	kb.once.Do(func() {
		if kb.stop != nil {
			kb.stop()
		}
	})
	return nil
}
