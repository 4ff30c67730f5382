package midi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.uber.org/zap"

	"go-lyre/debug"
)

// scanTimeout bounds port enumeration (CoreMIDI can hang)
const scanTimeout = 3 * time.Second

// InPorts lists MIDI input port names
func InPorts() ([]string, error) {
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	select {
	case ins := <-ch:
		names := make([]string, 0, len(ins))
		for _, in := range ins {
			names = append(names, in.String())
		}
		return names, nil
	case <-time.After(scanTimeout):
		return nil, fmt.Errorf("midi port scan timed out after %s", scanTimeout)
	}
}

func openPort(name string, h NoteHandler) (*Keyboard, error) {
	in, err := gomidi.FindInPort(name)
	if err != nil {
		return nil, err
	}
	return OpenKeyboard(name, in, h)
}

// DeviceManager handles hot-plug of MIDI keyboards: inputs matching a name
// filter are opened as they appear and closed when they go away.
type DeviceManager struct {
	filter   string
	onNote   NoteHandler
	pollRate time.Duration

	keyboards map[string]*Keyboard
	mu        sync.RWMutex
	events    chan DeviceEvent

	ports func() ([]string, error)
	open  func(name string, h NoteHandler) (*Keyboard, error)
}

// NewDeviceManager watches inputs whose name contains filter
// (case-insensitive; empty = any real input)
func NewDeviceManager(filter string, onNote NoteHandler) *DeviceManager {
	return &DeviceManager{
		filter:    strings.ToLower(filter),
		onNote:    onNote,
		pollRate:  time.Second,
		keyboards: make(map[string]*Keyboard),
		events:    make(chan DeviceEvent, 16),
		ports:     InPorts,
		open:      openPort,
	}
}

// Events returns a channel of connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Keyboards returns the names of connected inputs
func (dm *DeviceManager) Keyboards() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	names := make([]string, 0, len(dm.keyboards))
	for id := range dm.keyboards {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// Run polls for devices until ctx is done (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) matches(name string) bool {
	name = strings.ToLower(name)
	if dm.filter != "" {
		return strings.Contains(name, dm.filter)
	}
	// ALSA loopback, never a keyboard
	return !strings.Contains(name, "through")
}

func (dm *DeviceManager) emit(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
		debug.Warn("device event dropped", zap.String("id", ev.ID), zap.Stringer("type", ev.Type))
	}
}

func (dm *DeviceManager) scan() {
	names, err := dm.ports()
	if err != nil {
		// skip this round, the next tick retries
		debug.Warn("midi input scan failed", zap.Error(err))
		return
	}

	seen := make(map[string]bool)
	for _, name := range names {
		if !dm.matches(name) {
			continue
		}
		seen[name] = true

		dm.mu.RLock()
		_, exists := dm.keyboards[name]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		kb, err := dm.open(name, dm.onNote)
		if err != nil {
			debug.Log("midi", "open %s: %v", name, err)
			continue
		}

		dm.mu.Lock()
		dm.keyboards[name] = kb
		dm.mu.Unlock()

		debug.Info("midi keyboard connected", zap.String("port", name))
		dm.emit(DeviceEvent{Type: DeviceConnected, ID: name})
	}

	dm.mu.Lock()
	var gone []string
	for id, kb := range dm.keyboards {
		if !seen[id] {
			kb.Close()
			delete(dm.keyboards, id)
			gone = append(gone, id)
		}
	}
	dm.mu.Unlock()

	for _, id := range gone {
		debug.Info("midi keyboard disconnected", zap.String("port", id))
		dm.emit(DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, kb := range dm.keyboards {
		kb.Close()
	}
	dm.keyboards = make(map[string]*Keyboard)
}
