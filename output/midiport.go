package output

import (
	"fmt"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.uber.org/zap"

	"go-lyre/debug"
	"go-lyre/keymap"
)

// scanTimeout bounds port enumeration (CoreMIDI can hang)
const scanTimeout = 3 * time.Second

// noteLength is how long an auditioned key sounds
const noteLength = 150 * time.Millisecond

// OutPorts lists MIDI output port names
func OutPorts() ([]string, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		names := make([]string, 0, len(outs))
		for _, p := range outs {
			names = append(names, p.String())
		}
		return names, nil
	case <-time.After(scanTimeout):
		return nil, fmt.Errorf("midi port scan timed out after %s", scanTimeout)
	}
}

// MIDIPort plays the base pitch of each key on a MIDI output, so a synth can
// audition what the instrument would play.
type MIDIPort struct {
	name    string
	channel uint8
	mapper  *keymap.Mapper
	send    func(gomidi.Message) error

	mu     sync.Mutex
	closed bool
}

// OpenMIDIPort opens the first output whose name contains name
// (case-insensitive); an empty name picks the first port.
func OpenMIDIPort(name string, channel uint8, mapper *keymap.Mapper) (*MIDIPort, error) {
	names, err := OutPorts()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if name != "" && !strings.Contains(strings.ToLower(n), strings.ToLower(name)) {
			continue
		}
		out, err := gomidi.FindOutPort(n)
		if err != nil {
			return nil, fmt.Errorf("find port %q: %w", n, err)
		}
		send, err := gomidi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("open port %q: %w", n, err)
		}
		debug.Info("midi output opened", zap.String("port", n))
		return NewMIDIPort(n, channel, mapper, send), nil
	}
	return nil, fmt.Errorf("no midi output matching %q", name)
}

// NewMIDIPort wraps an already opened send func
func NewMIDIPort(name string, channel uint8, mapper *keymap.Mapper, send func(gomidi.Message) error) *MIDIPort {
	return &MIDIPort{
		name:    name,
		channel: channel & 0x0f,
		mapper:  mapper,
		send:    send,
	}
}

// Name returns the port name
func (p *MIDIPort) Name() string {
	return p.name
}

// Send plays the key's base pitch and schedules its note-off
func (p *MIDIPort) Send(key keymap.Symbol) bool {
	idx, ok := p.mapper.IndexOf(key)
	if !ok {
		return false
	}
	pitch, _ := keymap.BasePitch(idx)
	note := uint8(pitch)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	if err := p.send(gomidi.NoteOn(p.channel, note, 100)); err != nil {
		debug.Error("midi send failed", zap.String("port", p.name), zap.Error(err))
		return false
	}
	time.AfterFunc(noteLength, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.closed {
			_ = p.send(gomidi.NoteOff(p.channel, note))
		}
	})
	return true
}

// Close stops further sends and closes the driver
func (p *MIDIPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	gomidi.CloseDriver()
	return nil
}
