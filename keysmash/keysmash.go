package keysmash

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"go-lyre/debug"
	"go-lyre/keymap"
	"go-lyre/output"
)

// Mode picks which selected keys each press sends
type Mode string

const (
	Sequential Mode = "sequential" // cycle through keys in index order
	Random     Mode = "random"     // one random key per press
	Chord      Mode = "chord"      // every key on each press
)

// Rate limits in presses per second
const (
	MinRate = 1
	MaxRate = 50
)

const stopTimeout = time.Second

// ErrNoKeys is returned by Start when no selected index maps to a key
var ErrNoKeys = errors.New("keysmash: no keys selected")

// ParseMode matches a mode name case-insensitively
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Sequential, Random, Chord:
		return m, nil
	}
	return "", fmt.Errorf("unknown keysmash mode %q", s)
}

// Settings for one smashing session
type Settings struct {
	Keys []int // base-table indices
	Rate int   // presses per second, clamped to [MinRate, MaxRate]
	Mode Mode
}

// Smasher repeatedly presses a set of keys until stopped
type Smasher struct {
	mapper *keymap.Mapper
	sink   output.Sink
	intn   func(n int) int

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}

	presses atomic.Int64
}

// New creates an idle smasher
func New(mapper *keymap.Mapper, sink output.Sink) *Smasher {
	return &Smasher{
		mapper: mapper,
		sink:   sink,
		intn:   rand.Intn,
	}
}

// keys resolves indices through the current layout, in index order
func (s *Smasher) keys(indices []int) []keymap.Symbol {
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	var out []keymap.Symbol
	seen := make(map[int]bool)
	for _, i := range sorted {
		if seen[i] {
			continue
		}
		seen[i] = true
		if k := s.mapper.KeyForIndex(i); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Start begins smashing, replacing any running session
func (s *Smasher) Start(set Settings) error {
	keys := s.keys(set.Keys)
	if len(keys) == 0 {
		return ErrNoKeys
	}
	mode := set.Mode
	if mode == "" {
		mode = Sequential
	}
	rate := set.Rate
	if rate < MinRate {
		rate = MinRate
	}
	if rate > MaxRate {
		rate = MaxRate
	}

	s.Stop()

	s.mu.Lock()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	debug.Info("keysmash started", zap.String("mode", string(mode)), zap.Int("rate", rate), zap.Int("keys", len(keys)))
	go s.loop(keys, mode, time.Second/time.Duration(rate), stop, done)
	return nil
}

func (s *Smasher) loop(keys []keymap.Symbol, mode Mode, interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	next := 0
	for {
		switch mode {
		case Chord:
			for _, k := range keys {
				s.sink.Send(k)
			}
		case Random:
			s.sink.Send(keys[s.intn(len(keys))])
		default:
			s.sink.Send(keys[next])
			next = (next + 1) % len(keys)
		}
		n := s.presses.Add(1)
		debug.LogEvery(100, "keysmash", "%s press %d", mode, n)

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the session, waiting up to a second. Safe to call when idle.
func (s *Smasher) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(stopTimeout):
		debug.Warn("keysmash loop did not exit in time")
	}
	debug.Log("keysmash", "stopped after %d presses", s.presses.Load())
}

// Running reports whether a session is active
func (s *Smasher) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Presses counts presses (a chord counts once) since creation
func (s *Smasher) Presses() int64 {
	return s.presses.Load()
}
