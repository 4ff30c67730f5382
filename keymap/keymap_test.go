package keymap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBaseTable(t *testing.T) {
	tests := []struct {
		name   string
		pitch  int
		layout Layout
		want   Symbol
	}{
		{"lowest C", 48, QWERTY, "z"},
		{"middle C", 60, QWERTY, "a"},
		{"top B", 83, QWERTY, "u"},
		{"QWERTZ swaps y", 48, QWERTZ, "y"},
		{"QWERTZ swaps z", 79, QWERTZ, "z"},
		{"AZERTY comma", 59, AZERTY, "comma"},
		{"DVORAK first", 48, DVORAK, "semicolon"},
		{"DVORAK upper", 72, DVORAK, "apostrophe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.pitch, 0, tt.layout, false)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveTranspose(t *testing.T) {
	// pitch 62 with transpose +2 looks up 60
	got, ok := Resolve(62, 2, QWERTY, false)
	require.True(t, ok)
	assert.Equal(t, Symbol("a"), got)

	// pitch 58 with transpose -2 looks up 60
	got, ok = Resolve(58, -2, QWERTY, false)
	require.True(t, ok)
	assert.Equal(t, Symbol("a"), got)
}

func TestResolveOutOfRange(t *testing.T) {
	_, ok := Resolve(36, 0, QWERTY, false)
	assert.False(t, ok, "below range without clamp")

	_, ok = Resolve(61, 0, QWERTY, true)
	assert.False(t, ok, "black key misses even with clamp")

	_, ok = Resolve(60, 0, Layout("COLEMAK"), true)
	assert.False(t, ok, "unknown layout")
}

func TestResolveClampOctaves(t *testing.T) {
	tests := []struct {
		pitch int
		want  Symbol
	}{
		{36, "z"},  // C2 -> C3
		{24, "z"},  // C1 -> C3
		{84, "q"},  // C6 -> C5
		{96, "q"},  // C7 -> C5
		{107, "u"}, // B7 -> B5
		{47, "m"},  // B2 -> B3
	}
	for _, tt := range tests {
		got, ok := Resolve(tt.pitch, 0, QWERTY, true)
		require.True(t, ok, "pitch %d", tt.pitch)
		assert.Equal(t, tt.want, got, "pitch %d", tt.pitch)
	}
}

func TestResolveSymbolIffInTableOrClamped(t *testing.T) {
	for tr := -TransposeLimit; tr <= TransposeLimit; tr++ {
		for p := 0; p < 128; p++ {
			_, direct := BaseIndex(p - tr)
			_, ok := Resolve(p, tr, QWERTY, false)
			assert.Equal(t, direct, ok, "unclamped p=%d t=%d", p, tr)

			q := p - tr
			for q > MaxPitch {
				q -= 12
			}
			for q < MinPitch {
				q += 12
			}
			_, relocated := BaseIndex(q)
			_, ok = Resolve(p, tr, QWERTY, true)
			assert.Equal(t, direct || relocated, ok, "clamped p=%d t=%d", p, tr)
		}
	}
}

func TestClampIdempotentInRange(t *testing.T) {
	for _, l := range Layouts() {
		for _, p := range basePitches {
			plain, ok1 := Resolve(p, 0, l, false)
			clamped, ok2 := Resolve(p, 0, l, true)
			require.True(t, ok1)
			require.True(t, ok2)
			assert.Equal(t, plain, clamped)
		}
	}
}

func TestMapper(t *testing.T) {
	m := NewMapper(Layout("nope"), 40)
	assert.Equal(t, QWERTY, m.Layout())
	assert.Equal(t, 12, m.Transpose())

	m.SetTranspose(-99)
	assert.Equal(t, -12, m.Transpose())

	assert.False(t, m.SetLayout("nope"))
	assert.True(t, m.SetLayout(AZERTY))
	m.SetTranspose(0)

	s, ok := m.Resolve(59, false)
	require.True(t, ok)
	assert.Equal(t, Symbol("comma"), s)

	i, ok := m.IndexOf("comma")
	require.True(t, ok)
	assert.Equal(t, 6, i)
	assert.Equal(t, Symbol("comma"), m.KeyForIndex(6))
	assert.Equal(t, Symbol(""), m.KeyForIndex(21))
	assert.Len(t, m.Keys(), NumKeys)
}

func TestMapperConcurrentReaders(t *testing.T) {
	m := NewMapper(QWERTY, 0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if _, ok := m.Resolve(60, true); !ok {
					t.Error("middle C must always resolve")
					return
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		m.SetLayout(Layouts()[j%4])
	}
	wg.Wait()
}

func TestParseLayoutAndNames(t *testing.T) {
	l, err := ParseLayout(" dvorak ")
	require.NoError(t, err)
	assert.Equal(t, DVORAK, l)

	_, err = ParseLayout("colemak")
	assert.Error(t, err)

	assert.Equal(t, "C4", NoteName(7))
	assert.Equal(t, "", NoteName(-1))

	p, ok := BasePitch(20)
	require.True(t, ok)
	assert.Equal(t, 83, p)
}
