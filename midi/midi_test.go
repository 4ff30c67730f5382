package midi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-lyre/keymap"
	"go-lyre/output"
)

type fakePorts struct {
	mu     sync.Mutex
	names  []string
	err    error
	opened []string
	closed int
}

func (f *fakePorts) set(names ...string) {
	f.mu.Lock()
	f.names = names
	f.mu.Unlock()
}

func (f *fakePorts) list() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...), f.err
}

func (f *fakePorts) open(name string, h NoteHandler) (*Keyboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "broken" {
		return nil, errors.New("busy")
	}
	f.opened = append(f.opened, name)
	return &Keyboard{id: name, stop: func() {
		f.mu.Lock()
		f.closed++
		f.mu.Unlock()
	}}, nil
}

func newFakeManager(filter string) (*DeviceManager, *fakePorts) {
	f := &fakePorts{}
	dm := NewDeviceManager(filter, func(NoteEvent) {})
	dm.ports = f.list
	dm.open = f.open
	return dm, f
}

func TestScanConnectsAndDisconnects(t *testing.T) {
	dm, f := newFakeManager("")

	f.set("Midi Through Port-0", "Piano 88", "broken")
	dm.scan()
	assert.Equal(t, []string{"Piano 88"}, dm.Keyboards())
	assert.Equal(t, DeviceEvent{Type: DeviceConnected, ID: "Piano 88"}, <-dm.Events())

	dm.scan()
	assert.Equal(t, []string{"Piano 88"}, f.opened, "already open ports are kept")

	f.set()
	dm.scan()
	assert.Empty(t, dm.Keyboards())
	assert.Equal(t, DeviceEvent{Type: DeviceDisconnected, ID: "Piano 88"}, <-dm.Events())
	assert.Equal(t, 1, f.closed)
}

func TestScanFilter(t *testing.T) {
	dm, f := newFakeManager("KeyStep")
	f.set("Piano 88", "Arturia KeyStep 37")
	dm.scan()
	assert.Equal(t, []string{"Arturia KeyStep 37"}, dm.Keyboards())
}

func TestScanErrorKeepsDevices(t *testing.T) {
	dm, f := newFakeManager("")
	f.set("Piano 88")
	dm.scan()

	f.mu.Lock()
	f.err = errors.New("hung")
	f.mu.Unlock()
	dm.scan()
	assert.Equal(t, []string{"Piano 88"}, dm.Keyboards())
}

func TestRunClosesOnCancel(t *testing.T) {
	dm, f := newFakeManager("")
	f.set("Piano 88")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dm.Run(ctx)
		close(done)
	}()

	assert.Equal(t, DeviceConnected, (<-dm.Events()).Type)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Empty(t, dm.Keyboards())
	assert.Equal(t, 1, f.closed)

	_, open := <-dm.Events()
	assert.False(t, open)
}

func TestNoteOn(t *testing.T) {
	ev, ok := noteOn("kb", gomidi.NoteOn(3, 64, 90))
	require.True(t, ok)
	assert.Equal(t, NoteEvent{Port: "kb", Note: 64, Velocity: 90, Channel: 3}, ev)

	_, ok = noteOn("kb", gomidi.NoteOn(3, 64, 0))
	assert.False(t, ok)
	_, ok = noteOn("kb", gomidi.NoteOff(3, 64))
	assert.False(t, ok)
}

func TestRelay(t *testing.T) {
	var got []keymap.Symbol
	sink := output.SinkFunc(func(k keymap.Symbol) bool {
		got = append(got, k)
		return true
	})
	h := Relay(keymap.NewMapper(keymap.QWERTY, 0), sink)

	h(NoteEvent{Note: 60, Velocity: 100})
	h(NoteEvent{Note: 61, Velocity: 100})
	h(NoteEvent{Note: 96, Velocity: 100})
	assert.Equal(t, []keymap.Symbol{"a", "q"}, got)
}

func TestKeyboardCloseOnce(t *testing.T) {
	n := 0
	kb := &Keyboard{id: "x", stop: func() { n++ }}
	kb.Close()
	kb.Close()
	assert.Equal(t, 1, n)
	assert.Equal(t, "x", kb.ID())
}
