package player

import (
	"sort"
	"time"

	"go-lyre/debug"
	"go-lyre/timeline"
)

// logEvery thins per-note debug output
const logEvery = 200

type cmdKind int

const (
	cmdPause cmdKind = iota
	cmdResume
	cmdSeek
	cmdSpeed
	cmdReload
	cmdSync // barrier: ack once everything queued before it is applied
)

type command struct {
	kind  cmdKind
	ms    float64
	gen   uint64
	speed float64
	notes []timeline.Note
	ack   chan struct{}
}

// run is one playback goroutine. Commands are the only way the foreground
// touches the loop's cursor and clock.
type run struct {
	cmds    chan command
	quit    chan struct{}
	done    chan struct{}
	events  Events
	stopped bool // set under Player.mu by Stop
}

func newRun(ev Events) *run {
	return &run{
		cmds:   make(chan command, 64),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		events: ev,
	}
}

// send queues c unless the loop is going away
func (r *run) send(c command) bool {
	select {
	case r.cmds <- c:
		return true
	case <-r.quit:
	case <-r.done:
	}
	return false
}

// loopState is owned by the loop goroutine
type loopState struct {
	notes     []timeline.Note
	cursor    int
	anchorPos float64   // virtual ms at anchorAt
	anchorAt  time.Time // wall time of the last re-anchor
	speed     float64
	paused    bool
	gen       uint64
	duration  float64

	from   float64 // start or last seek target
	played float64 // time of the last dispatched note, valid when sent > 0
	sent   int     // notes dispatched since from
	total  int
}

// resume is where a rebuilt note list picks up: past the last note played,
// or at the start point when nothing played since it
func (s *loopState) resume(notes []timeline.Note) int {
	if s.sent == 0 {
		return firstAtOrAfter(notes, s.from)
	}
	return firstAfter(notes, s.played)
}

func (s *loopState) current(now time.Time) float64 {
	if s.paused {
		return s.anchorPos
	}
	elapsed := float64(now.Sub(s.anchorAt)) / float64(time.Millisecond)
	return s.anchorPos + elapsed*s.speed
}

func (s *loopState) reanchor(now time.Time) {
	s.anchorPos = s.current(now)
	s.anchorAt = now
}

// apply returns true when the position changed and should be published
func (s *loopState) apply(c command, now time.Time) bool {
	defer func() {
		if c.ack != nil {
			close(c.ack)
		}
	}()

	switch c.kind {
	case cmdPause:
		if s.paused {
			return false
		}
		s.reanchor(now)
		s.paused = true
		return true
	case cmdResume:
		s.anchorAt = now
		s.paused = false
	case cmdSeek:
		s.gen = c.gen
		s.anchorPos = c.ms
		s.anchorAt = now
		s.cursor = firstAtOrAfter(s.notes, c.ms)
		s.from = c.ms
		s.sent = 0
	case cmdSpeed:
		s.reanchor(now)
		s.speed = c.speed
	case cmdReload:
		s.notes = c.notes
		s.cursor = s.resume(s.notes)
	}
	return false
}

func firstAtOrAfter(notes []timeline.Note, ms float64) int {
	return sort.Search(len(notes), func(i int) bool { return notes[i].TimeMs >= ms })
}

func firstAfter(notes []timeline.Note, ms float64) int {
	return sort.Search(len(notes), func(i int) bool { return notes[i].TimeMs > ms })
}

func (p *Player) loop(r *run, st *loopState) {
	defer close(r.done)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		default:
		}

		// Drain queued commands before reading the clock
	drain:
		for {
			select {
			case c := <-r.cmds:
				if st.apply(c, p.now()) {
					p.publish(r, st.anchorPos, st.gen)
				}
			default:
				break drain
			}
		}

		if !st.paused {
			if st.cursor >= len(st.notes) {
				p.finish(r)
				return
			}

			pos := st.current(p.now())
			shown := pos
			if st.duration > 0 && shown > st.duration {
				// notes may outlast the file length; keep playing them
				shown = st.duration
			}
			p.publish(r, shown, st.gen)

			for st.cursor < len(st.notes) && st.notes[st.cursor].TimeMs <= pos {
				n := st.notes[st.cursor]
				st.cursor++
				st.played = n.TimeMs
				st.sent++
				st.total++
				p.dispatch(r, n, st.total)
			}
		}

		select {
		case <-r.quit:
			return
		case c := <-r.cmds:
			if st.apply(c, p.now()) {
				p.publish(r, st.anchorPos, st.gen)
			}
		case <-ticker.C:
		}
	}
}

// publish stores pos unless a newer seek or stop happened meanwhile
func (p *Player) publish(r *run, pos float64, gen uint64) {
	p.mu.Lock()
	ok := p.seekGen == gen && p.run == r
	if ok {
		p.position = pos
	}
	p.mu.Unlock()

	if ok && r.events.OnPosition != nil {
		r.events.OnPosition(pos)
	}
}

func (p *Player) dispatch(r *run, n timeline.Note, count int) {
	key, ok := p.mapper.Resolve(n.Pitch, true)
	if ok {
		p.sink.Send(key)
	}
	if count%logEvery == 0 {
		debug.Log("player", "note %d at %.0fms -> %q (%d sent)", n.Pitch, n.TimeMs, key, count)
	}
	if r.events.OnNote != nil {
		r.events.OnNote(n, key, ok)
	}
}

// finish handles the sequence running out: rewind so the next Play starts
// over. A Stop racing with it wins.
func (p *Player) finish(r *run) {
	p.mu.Lock()
	natural := !r.stopped
	if p.run == r {
		p.run = nil
		p.transport = Stopped
		p.position = 0
		p.seekGen++
	}
	p.mu.Unlock()

	if natural {
		if r.events.OnFinished != nil {
			r.events.OnFinished()
		}
	}
}
