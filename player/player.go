package player

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-lyre/debug"
	"go-lyre/keymap"
	"go-lyre/midifile"
	"go-lyre/output"
	"go-lyre/timeline"
)

// Transport is the playback state
type Transport int32

const (
	Stopped Transport = iota
	Playing
	Paused
)

func (t Transport) String() string {
	switch t {
	case Playing:
		return "PLAY"
	case Paused:
		return "PAUSE"
	}
	return "STOP"
}

// Speed limits
const (
	MinSpeed = 0.25
	MaxSpeed = 2.0
)

const (
	DefaultTick        = time.Millisecond
	DefaultStopTimeout = time.Second
)

// ErrNoTimeline is returned by operations that need a loaded file
var ErrNoTimeline = errors.New("player: no timeline loaded")

// Events are fired from the playback goroutine. Callers owning a UI must
// hand them over to their own goroutine.
type Events struct {
	OnPosition func(ms float64)
	OnNote     func(n timeline.Note, key keymap.Symbol, ok bool) // ok=false: no key for this pitch
	OnStarted  func()
	OnStopped  func()
	OnFinished func() // sequence ran out, not an explicit Stop
}

// TrackInfo is a read-only view of a track
type TrackInfo struct {
	ID         int
	Name       string
	Instrument string
	Enabled    bool
	Notes      int
}

// Option configures a Player
type Option func(*Player)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// WithTick sets the loop interval
func WithTick(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.tick = d
		}
	}
}

// WithStopTimeout bounds how long Stop waits for the loop
func WithStopTimeout(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.stopTimeout = d
		}
	}
}

// WithEvents installs callbacks
func WithEvents(ev Events) Option {
	return func(p *Player) { p.events = ev }
}

// WithBuildOptions controls how loaded files are turned into timelines
func WithBuildOptions(opts timeline.BuildOptions) Option {
	return func(p *Player) { p.build = opts }
}

// WithMerge sets the initial merge policy
func WithMerge(m timeline.MergePolicy) Option {
	return func(p *Player) { p.merge = m }
}

// WithSpeed sets the initial speed
func WithSpeed(s float64) Option {
	return func(p *Player) { p.speed = ClampSpeed(s) }
}

// Player schedules timeline notes against a virtual clock and sends their
// keys to a sink. All methods are safe to call from any goroutine.
type Player struct {
	mapper      *keymap.Mapper
	sink        output.Sink
	now         func() time.Time
	tick        time.Duration
	stopTimeout time.Duration
	build       timeline.BuildOptions

	mu        sync.Mutex
	events    Events
	tl        *timeline.Timeline
	merge     timeline.MergePolicy
	file      string
	transport Transport
	position  float64
	seekGen   uint64 // bumped on every externally set position
	speed     float64
	run       *run
}

// New creates a stopped player with nothing loaded
func New(mapper *keymap.Mapper, sink output.Sink, opts ...Option) *Player {
	p := &Player{
		mapper:      mapper,
		sink:        sink,
		now:         time.Now,
		tick:        DefaultTick,
		stopTimeout: DefaultStopTimeout,
		speed:       1.0,
		build:       timeline.BuildOptions{Tempo: timeline.TempoGlobal},
		merge:       timeline.MergePolicy{ThresholdMs: timeline.DefaultMergeThresholdMs},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mapper returns the shared key mapper
func (p *Player) Mapper() *keymap.Mapper {
	return p.mapper
}

// SetEvents replaces the callbacks; a running loop keeps the old ones
func (p *Player) SetEvents(ev Events) {
	p.mu.Lock()
	p.events = ev
	p.mu.Unlock()
}

// LoadFile stops playback, drops the current timeline and loads a MIDI file.
// On error nothing is left loaded.
func (p *Player) LoadFile(path string) error {
	p.Unload()
	src, err := midifile.Load(path)
	if err != nil {
		debug.Error("load failed", zap.String("file", path), zap.Error(err))
		return err
	}
	p.Load(src, path)
	return nil
}

// Load stops playback and installs a timeline built from src
func (p *Player) Load(src timeline.Source, name string) {
	p.mu.Lock()
	build, merge := p.build, p.merge
	p.mu.Unlock()

	tl := timeline.New(src, build, merge)

	p.mu.Lock()
	r, ev := p.detachLocked()
	p.tl = tl
	p.file = name
	tracks, notes := len(tl.Tracks), len(tl.Notes)
	dur := tl.DurationMs
	p.mu.Unlock()
	p.awaitStop(r, ev)

	debug.Info("timeline loaded",
		zap.String("file", name),
		zap.Int("tracks", tracks),
		zap.Int("notes", notes),
		zap.Float64("duration_ms", dur),
	)
}

// Unload stops playback and clears the timeline
func (p *Player) Unload() {
	p.mu.Lock()
	r, ev := p.detachLocked()
	p.tl = nil
	p.file = ""
	p.mu.Unlock()
	p.awaitStop(r, ev)
}

// Play starts playback from the current position, or resumes when paused.
// Nothing happens without notes to play.
func (p *Player) Play() {
	p.mu.Lock()
	switch p.transport {
	case Playing:
		p.mu.Unlock()
		return
	case Paused:
		p.mu.Unlock()
		p.Resume()
		return
	}
	if p.tl == nil || len(p.tl.Notes) == 0 {
		p.mu.Unlock()
		return
	}

	r := newRun(p.events)
	st := &loopState{
		notes:     p.tl.Notes,
		speed:     p.speed,
		anchorPos: p.position,
		anchorAt:  p.now(),
		from:      p.position,
		gen:       p.seekGen,
		duration:  p.tl.DurationMs,
	}
	st.cursor = firstAtOrAfter(st.notes, st.anchorPos)
	p.run = r
	p.transport = Playing
	p.mu.Unlock()

	debug.Log("player", "play from %.1fms cursor=%d/%d speed=%.2f", st.anchorPos, st.cursor, len(st.notes), st.speed)
	go p.loop(r, st)

	if r.events.OnStarted != nil {
		r.events.OnStarted()
	}
}

// Pause freezes the position; the loop stays alive
func (p *Player) Pause() {
	p.mu.Lock()
	if p.transport != Playing || p.run == nil {
		p.mu.Unlock()
		return
	}
	p.transport = Paused
	r := p.run
	p.mu.Unlock()

	r.send(command{kind: cmdPause})
}

// Resume continues after Pause without counting the paused time
func (p *Player) Resume() {
	p.mu.Lock()
	if p.transport != Paused || p.run == nil {
		p.mu.Unlock()
		return
	}
	p.transport = Playing
	r := p.run
	p.mu.Unlock()

	r.send(command{kind: cmdResume})
}

// TogglePause pauses when playing, otherwise plays
func (p *Player) TogglePause() {
	if p.IsPlaying() {
		p.Pause()
		return
	}
	p.Play()
}

// Stop ends playback and rewinds to 0. Safe to call in any state, any
// number of times; waits at most the stop timeout for the loop to exit.
func (p *Player) Stop() {
	p.mu.Lock()
	r, ev := p.detachLocked()
	p.mu.Unlock()
	p.awaitStop(r, ev)
}

// detachLocked resets to Stopped at 0 and tells the loop, if any, to quit.
// Callers install any new state before releasing p.mu.
func (p *Player) detachLocked() (*run, Events) {
	r := p.run
	p.run = nil
	if r != nil {
		r.stopped = true
		close(r.quit)
	}
	p.transport = Stopped
	p.position = 0
	p.seekGen++
	return r, p.events
}

// awaitStop waits for a detached loop and fires OnStopped
func (p *Player) awaitStop(r *run, ev Events) {
	if r != nil {
		select {
		case <-r.done:
		case <-time.After(p.stopTimeout):
			debug.Warn("playback loop did not exit in time", zap.Duration("timeout", p.stopTimeout))
		}
		debug.Log("player", "stopped")
	}
	if ev.OnStopped != nil {
		ev.OnStopped()
	}
}

// Seek moves the position, clamped to [0, duration]. Notes at or after the
// target will play; earlier ones won't. When stopped, the next Play starts
// from here.
func (p *Player) Seek(ms float64) {
	p.mu.Lock()
	ms = clamp(ms, 0, p.durationLocked())
	p.seekGen++
	gen := p.seekGen
	p.position = ms
	r := p.run
	p.mu.Unlock()

	if r != nil {
		r.send(command{kind: cmdSeek, ms: ms, gen: gen})
	}
}

// ClampSpeed bounds a speed factor to [MinSpeed, MaxSpeed]
func ClampSpeed(s float64) float64 {
	return clamp(s, MinSpeed, MaxSpeed)
}

// SetSpeed changes the speed factor; playback continues from where it is
func (p *Player) SetSpeed(s float64) {
	s = ClampSpeed(s)
	p.mu.Lock()
	p.speed = s
	r := p.run
	p.mu.Unlock()

	if r != nil {
		r.send(command{kind: cmdSpeed, speed: s})
	}
}

// SetTrackEnabled includes or excludes a track and rebuilds the note list.
// A running loop picks up the new list at its current position.
func (p *Player) SetTrackEnabled(id int, enabled bool) error {
	p.mu.Lock()
	if p.tl == nil {
		p.mu.Unlock()
		return ErrNoTimeline
	}
	if !p.tl.SetTrackEnabled(id, enabled) {
		p.mu.Unlock()
		return fmt.Errorf("no track with id %d", id)
	}
	notes := p.tl.Notes
	r := p.run
	p.mu.Unlock()

	debug.Log("player", "track %d enabled=%v notes=%d", id, enabled, len(notes))
	if r != nil {
		r.send(command{kind: cmdReload, notes: notes})
	}
	return nil
}

// SetMerge changes the merge-nearby-notes policy, keeping it for later loads
func (p *Player) SetMerge(m timeline.MergePolicy) {
	p.mu.Lock()
	p.merge = m
	if p.tl == nil {
		p.mu.Unlock()
		return
	}
	p.tl.SetMerge(m)
	notes := p.tl.Notes
	r := p.run
	p.mu.Unlock()

	if r != nil {
		r.send(command{kind: cmdReload, notes: notes})
	}
}

// Merge returns the merge policy
func (p *Player) Merge() timeline.MergePolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.merge
}

// Tracks lists the loaded tracks
func (p *Player) Tracks() []TrackInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tl == nil {
		return nil
	}
	out := make([]TrackInfo, 0, len(p.tl.Tracks))
	for _, t := range p.tl.Tracks {
		out = append(out, TrackInfo{
			ID:         t.ID,
			Name:       t.Name,
			Instrument: t.Instrument,
			Enabled:    t.Enabled,
			Notes:      len(t.Notes),
		})
	}
	return out
}

// NoteCount returns the number of notes that would play
func (p *Player) NoteCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tl == nil {
		return 0
	}
	return len(p.tl.Notes)
}

func (p *Player) durationLocked() float64 {
	if p.tl == nil {
		return 0
	}
	return p.tl.DurationMs
}

// Duration returns the file length in ms
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.durationLocked()
}

// Position returns the virtual playback position in ms
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// PositionPercent returns the position as 0-100 of the duration
func (p *Player) PositionPercent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.durationLocked()
	if d <= 0 {
		return 0
	}
	return p.position / d * 100
}

// Speed returns the speed factor
func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Transport returns the transport state
func (p *Player) Transport() Transport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transport
}

// IsPlaying is true while playing and not paused
func (p *Player) IsPlaying() bool {
	return p.Transport() == Playing
}

// IsPaused is true while paused
func (p *Player) IsPaused() bool {
	return p.Transport() == Paused
}

// FileName returns the base name of the loaded file
func (p *Player) FileName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == "" {
		return ""
	}
	return filepath.Base(p.file)
}

// FormatTime renders ms as MM:SS
func FormatTime(ms float64) string {
	total := int(ms / 1000)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
