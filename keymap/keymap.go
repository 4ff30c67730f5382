package keymap

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Symbol is a keyboard key label as understood by the key output (e.g. "q", "comma")
type Symbol string

// Layout identifies a keyboard layout
type Layout string

const (
	QWERTY Layout = "QWERTY"
	QWERTZ Layout = "QWERTZ"
	AZERTY Layout = "AZERTY"
	DVORAK Layout = "DVORAK"
)

// NumKeys is the number of playable keys: 7 notes x 3 rows
const NumKeys = 21

// Playable pitch range (C3..B5)
const (
	MinPitch = 48
	MaxPitch = 83
)

// TransposeLimit bounds transposition in semitones either way
const TransposeLimit = 12

// basePitches lists the playable pitches in key order.
// Row 1 = C3-B3, row 2 = C4-B4, row 3 = C5-B5.
var basePitches = [NumKeys]int{
	48, 50, 52, 53, 55, 57, 59,
	60, 62, 64, 65, 67, 69, 71,
	72, 74, 76, 77, 79, 81, 83,
}

// baseIndex maps pitch-MinPitch to key index, -1 for pitches with no key
var baseIndex = func() [MaxPitch - MinPitch + 1]int {
	var idx [MaxPitch - MinPitch + 1]int
	for i := range idx {
		idx[i] = -1
	}
	for i, p := range basePitches {
		idx[p-MinPitch] = i
	}
	return idx
}()

var layoutOrder = []Layout{QWERTY, QWERTZ, AZERTY, DVORAK}

var layouts = map[Layout][NumKeys]Symbol{
	QWERTY: {
		"z", "x", "c", "v", "b", "n", "m",
		"a", "s", "d", "f", "g", "h", "j",
		"q", "w", "e", "r", "t", "y", "u",
	},
	QWERTZ: {
		"y", "x", "c", "v", "b", "n", "m",
		"a", "s", "d", "f", "g", "h", "j",
		"q", "w", "e", "r", "t", "z", "u",
	},
	AZERTY: {
		"w", "x", "c", "v", "b", "n", "comma",
		"q", "s", "d", "f", "g", "h", "j",
		"a", "z", "e", "r", "t", "y", "u",
	},
	DVORAK: {
		"semicolon", "q", "j", "k", "x", "b", "m",
		"a", "o", "e", "u", "i", "d", "h",
		"apostrophe", "comma", "period", "p", "y", "f", "g",
	},
}

var noteNames = [NumKeys]string{
	"C3", "D3", "E3", "F3", "G3", "A3", "B3",
	"C4", "D4", "E4", "F4", "G4", "A4", "B4",
	"C5", "D5", "E5", "F5", "G5", "A5", "B5",
}

// Layouts returns all known layouts in display order
func Layouts() []Layout {
	out := make([]Layout, len(layoutOrder))
	copy(out, layoutOrder)
	return out
}

// ParseLayout matches a layout name case-insensitively
func ParseLayout(name string) (Layout, error) {
	l := Layout(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := layouts[l]; !ok {
		return "", fmt.Errorf("unknown layout %q", name)
	}
	return l, nil
}

// BaseIndex returns the key index of a playable pitch
func BaseIndex(pitch int) (int, bool) {
	if pitch < MinPitch || pitch > MaxPitch {
		return 0, false
	}
	i := baseIndex[pitch-MinPitch]
	return i, i >= 0
}

// BasePitch returns the pitch bound to key index i
func BasePitch(i int) (int, bool) {
	if i < 0 || i >= NumKeys {
		return 0, false
	}
	return basePitches[i], true
}

// NoteName returns the note name for a key index ("" if out of range)
func NoteName(i int) string {
	if i < 0 || i >= NumKeys {
		return ""
	}
	return noteNames[i]
}

// Resolve maps a pitch to a key symbol.
//
// pitch-transpose is looked up in the base table. On a miss with clamp set,
// the query is shifted by octaves into [MinPitch, MaxPitch] and looked up
// again; black keys still miss. transpose is expected to be pre-clamped.
func Resolve(pitch, transpose int, layout Layout, clamp bool) (Symbol, bool) {
	keys, ok := layouts[layout]
	if !ok {
		return "", false
	}
	q := pitch - transpose
	if i, ok := BaseIndex(q); ok {
		return keys[i], true
	}
	if !clamp {
		return "", false
	}
	for q > MaxPitch {
		q -= 12
	}
	for q < MinPitch {
		q += 12
	}
	if i, ok := BaseIndex(q); ok {
		return keys[i], true
	}
	return "", false
}

// ClampTranspose bounds a transposition to [-12, +12]
func ClampTranspose(t int) int {
	if t < -TransposeLimit {
		return -TransposeLimit
	}
	if t > TransposeLimit {
		return TransposeLimit
	}
	return t
}

// Mapper holds the caller-selected layout and transposition.
// It is shared by reference with the player; all methods are safe for
// concurrent use and changes are seen by the next Resolve.
type Mapper struct {
	layout    atomic.Value // Layout
	transpose atomic.Int32
}

// NewMapper creates a mapper. Unknown layouts fall back to QWERTY.
func NewMapper(layout Layout, transpose int) *Mapper {
	m := &Mapper{}
	m.layout.Store(QWERTY)
	m.SetLayout(layout)
	m.SetTranspose(transpose)
	return m
}

// Layout returns the current layout
func (m *Mapper) Layout() Layout {
	return m.layout.Load().(Layout)
}

// SetLayout switches layout; unknown layouts are ignored
func (m *Mapper) SetLayout(l Layout) bool {
	if _, ok := layouts[l]; !ok {
		return false
	}
	m.layout.Store(l)
	return true
}

// Transpose returns the current transposition
func (m *Mapper) Transpose() int {
	return int(m.transpose.Load())
}

// SetTranspose sets transposition, clamped to [-12, +12]
func (m *Mapper) SetTranspose(t int) {
	m.transpose.Store(int32(ClampTranspose(t)))
}

// Resolve maps a pitch with the current layout and transposition
func (m *Mapper) Resolve(pitch int, clamp bool) (Symbol, bool) {
	return Resolve(pitch, m.Transpose(), m.Layout(), clamp)
}

// Keys returns the 21 symbols of the current layout
func (m *Mapper) Keys() []Symbol {
	keys := layouts[m.Layout()]
	return keys[:]
}

// KeyForIndex returns the symbol at key index i in the current layout
func (m *Mapper) KeyForIndex(i int) Symbol {
	if i < 0 || i >= NumKeys {
		return ""
	}
	return layouts[m.Layout()][i]
}

// IndexOf returns the key index of a symbol in the current layout
func (m *Mapper) IndexOf(s Symbol) (int, bool) {
	keys := layouts[m.Layout()]
	for i, k := range keys {
		if k == s {
			return i, true
		}
	}
	return 0, false
}
