package output

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go-lyre/debug"
	"go-lyre/keymap"
)

// Sink delivers a key press. Send must not block for long; delivery
// failures are reported by the sink itself and only signalled by false.
type Sink interface {
	Send(key keymap.Symbol) bool
}

// SinkFunc adapts a function to Sink
type SinkFunc func(key keymap.Symbol) bool

func (f SinkFunc) Send(key keymap.Symbol) bool { return f(key) }

// ErrUnknownSink is returned by New for an unrecognised kind
var ErrUnknownSink = errors.New("unknown output")

// Kind names an output implementation
type Kind string

const (
	KindXdotool Kind = "xdotool"
	KindMIDI    Kind = "midi"
	KindLog     Kind = "log"
)

// Config selects and configures the output
type Config struct {
	Kind     Kind   `json:"kind,omitempty"`
	MIDIPort string `json:"midiPort,omitempty"` // with xdotool: also play on this port
	Channel  uint8  `json:"channel,omitempty"` // 0-based MIDI channel
}

// New opens the configured sink. The returned close func releases ports.
func New(cfg Config, mapper *keymap.Mapper) (Sink, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Kind {
	case KindXdotool, "":
		if cfg.MIDIPort == "" {
			return NewXdotool(), noop, nil
		}
		// also audition on a synth
		p, err := OpenMIDIPort(cfg.MIDIPort, cfg.Channel, mapper)
		if err != nil {
			return nil, nil, err
		}
		return Fanout{NewXdotool(), p}, p.Close, nil
	case KindLog:
		return &Logger{}, noop, nil
	case KindMIDI:
		p, err := OpenMIDIPort(cfg.MIDIPort, cfg.Channel, mapper)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
	return nil, nil, fmt.Errorf("%w %q", ErrUnknownSink, cfg.Kind)
}

// Toggle gates another sink on and off at runtime
type Toggle struct {
	Sink    Sink
	enabled atomic.Bool
}

// NewToggle wraps s, enabled
func NewToggle(s Sink) *Toggle {
	t := &Toggle{Sink: s}
	t.enabled.Store(true)
	return t
}

func (t *Toggle) Enable()       { t.enabled.Store(true) }
func (t *Toggle) Disable()      { t.enabled.Store(false) }
func (t *Toggle) Enabled() bool { return t.enabled.Load() }

func (t *Toggle) Send(key keymap.Symbol) bool {
	if !t.enabled.Load() || key == "" {
		return false
	}
	return t.Sink.Send(key)
}

// Fanout sends to every sink; it succeeds if any of them did
type Fanout []Sink

func (f Fanout) Send(key keymap.Symbol) bool {
	ok := false
	for _, s := range f {
		if s.Send(key) {
			ok = true
		}
	}
	return ok
}

// FindXdotool returns the xdotool sink inside s, looking through Toggle
// and Fanout
func FindXdotool(s Sink) (*Xdotool, bool) {
	switch v := s.(type) {
	case *Xdotool:
		return v, true
	case *Toggle:
		return FindXdotool(v.Sink)
	case Fanout:
		for _, inner := range v {
			if x, ok := FindXdotool(inner); ok {
				return x, true
			}
		}
	}
	return nil, false
}

// Logger only logs keys, for dry runs
type Logger struct {
	count atomic.Int64
}

func (l *Logger) Send(key keymap.Symbol) bool {
	n := l.count.Add(1)
	debug.Log("key", "#%d %s", n, key)
	return true
}

// Count returns how many keys were sent
func (l *Logger) Count() int64 {
	return l.count.Load()
}
