package keysmash

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-lyre/keymap"
)

type recorder struct {
	mu   sync.Mutex
	keys []keymap.Symbol
}

func (r *recorder) Send(k keymap.Symbol) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, k)
	return true
}

func (r *recorder) snapshot() []keymap.Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]keymap.Symbol(nil), r.keys...)
}

func smash(t *testing.T, set Settings, want int) []keymap.Symbol {
	t.Helper()
	rec := &recorder{}
	s := New(keymap.NewMapper(keymap.QWERTY, 0), rec)
	s.intn = func(n int) int { return n - 1 }

	require.NoError(t, s.Start(set))
	assert.True(t, s.Running())
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= want }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	assert.False(t, s.Running())
	return rec.snapshot()
}

func TestSequentialCyclesInIndexOrder(t *testing.T) {
	got := smash(t, Settings{Keys: []int{8, 7, 9, 7}, Rate: MaxRate, Mode: Sequential}, 4)
	assert.Equal(t, []keymap.Symbol{"a", "s", "d", "a"}, got[:4])
}

func TestRandomUsesSelectedKeys(t *testing.T) {
	got := smash(t, Settings{Keys: []int{0, 20}, Rate: MaxRate, Mode: Random}, 3)
	for _, k := range got {
		assert.Equal(t, keymap.Symbol("u"), k)
	}
}

func TestChordSendsAllKeys(t *testing.T) {
	got := smash(t, Settings{Keys: []int{14, 15}, Rate: MaxRate, Mode: Chord}, 4)
	assert.Equal(t, []keymap.Symbol{"q", "w", "q", "w"}, got[:4])
}

func TestNoKeys(t *testing.T) {
	s := New(keymap.NewMapper(keymap.QWERTY, 0), &recorder{})
	assert.ErrorIs(t, s.Start(Settings{}), ErrNoKeys)
	assert.ErrorIs(t, s.Start(Settings{Keys: []int{-1, 21}}), ErrNoKeys)
	assert.False(t, s.Running())
	s.Stop()
	s.Stop()
}

func TestStartReplacesSession(t *testing.T) {
	rec := &recorder{}
	s := New(keymap.NewMapper(keymap.QWERTY, 0), rec)
	defer s.Stop()

	require.NoError(t, s.Start(Settings{Keys: []int{0}, Rate: 0}))
	require.NoError(t, s.Start(Settings{Keys: []int{1}, Rate: 1000}))
	assert.True(t, s.Running())
	require.Eventually(t, func() bool { return s.Presses() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Chord ")
	require.NoError(t, err)
	assert.Equal(t, Chord, m)

	_, err = ParseMode("frantic")
	assert.Error(t, err)
}
