package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"go-lyre/config"
	"go-lyre/debug"
	"go-lyre/keymap"
	"go-lyre/keysmash"
	"go-lyre/output"
	"go-lyre/player"
	"go-lyre/theme"
	"go-lyre/widgets"
)

const (
	seekStep  = 5000 // ms
	speedStep = 0.25
	litFor    = 150 * time.Millisecond
	frameRate = 50 * time.Millisecond
	barWidth  = 42
)

type tickMsg time.Time

type Model struct {
	Player     *player.Player
	Output     *output.Toggle
	Smasher    *keysmash.Smasher
	Config     *config.Config
	ConfigPath string // empty: settings changes aren't saved
	Theme      *theme.Theme

	updates  chan tea.Msg
	lit      map[int]time.Time
	selected int
	history  int
	status   string
	quitting bool
}

func NewModel(p *player.Player, out *output.Toggle, smasher *keysmash.Smasher, cfg *config.Config, th *theme.Theme, updates chan tea.Msg) Model {
	return Model{
		Player:  p,
		Output:  out,
		Smasher: smasher,
		Config:  cfg,
		Theme:   th,
		updates: updates,
		lit:     make(map[int]time.Time),
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(ListenForUpdates(m.updates), tick())
}

func (m Model) mapper() *keymap.Mapper {
	return m.Player.Mapper()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		now := time.Time(msg)
		for i, until := range m.lit {
			if now.After(until) {
				delete(m.lit, i)
			}
		}
		return m, tick()

	case NoteMsg:
		m.lit[msg.Index] = time.Now().Add(litFor)
		return m, ListenForUpdates(m.updates)

	case FinishedMsg:
		m.status = "finished"
		return m, ListenForUpdates(m.updates)

	case ConfigMsg:
		m.applyConfig(msg.Config)
		return m, ListenForUpdates(m.updates)

	case UpdateMsg:
		return m, ListenForUpdates(m.updates)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.Player
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.Smasher.Stop()
		p.Stop()
		return m, tea.Quit

	case " ":
		p.TogglePause()
		m.status = ""

	case "s":
		p.Stop()

	case "left":
		p.Seek(p.Position() - seekStep)

	case "right":
		p.Seek(p.Position() + seekStep)

	case "+", "=":
		p.SetSpeed(p.Speed() + speedStep)
		m.Config.Speed = p.Speed()
		m.save()

	case "-", "_":
		p.SetSpeed(p.Speed() - speedStep)
		m.Config.Speed = p.Speed()
		m.save()

	case "]":
		m.mapper().SetTranspose(m.mapper().Transpose() + 1)
		m.Config.Transpose = m.mapper().Transpose()
		m.save()

	case "[":
		m.mapper().SetTranspose(m.mapper().Transpose() - 1)
		m.Config.Transpose = m.mapper().Transpose()
		m.save()

	case "l":
		m.mapper().SetLayout(nextLayout(m.mapper().Layout()))
		m.Config.Layout = m.mapper().Layout()
		m.save()

	case "m":
		merge := p.Merge()
		merge.Enabled = !merge.Enabled
		p.SetMerge(merge)
		m.Config.MergeNearby = merge.Enabled
		m.save()

	case "o":
		if m.Output.Enabled() {
			m.Output.Disable()
			m.status = "output muted"
		} else {
			m.Output.Enable()
			m.status = "output live"
		}

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(p.Tracks())-1 {
			m.selected++
		}

	case "enter", "t":
		m.toggleTrack(m.selected)

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		m.selected = idx
		m.toggleTrack(idx)

	case "r":
		m.openRecent()

	case "x":
		m.toggleSmash()
	}
	return m, nil
}

func (m *Model) toggleTrack(idx int) {
	tracks := m.Player.Tracks()
	if idx < 0 || idx >= len(tracks) {
		return
	}
	t := tracks[idx]
	if err := m.Player.SetTrackEnabled(t.ID, !t.Enabled); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) openRecent() {
	hist := m.Config.History
	if len(hist) == 0 {
		m.status = "no recent files"
		return
	}
	m.history = (m.history + 1) % len(hist)
	path := hist[m.history]
	if err := m.Player.LoadFile(path); err != nil {
		m.status = fmt.Sprintf("load failed: %v", err)
		return
	}
	m.selected = 0
	m.status = "loaded " + m.Player.FileName()
}

func (m *Model) toggleSmash() {
	if m.Smasher.Running() {
		m.Smasher.Stop()
		m.status = "keysmash stopped"
		return
	}
	k := m.Config.Keysmash
	err := m.Smasher.Start(keysmash.Settings{Keys: k.Keys, Rate: k.Rate, Mode: keysmash.Mode(k.Mode)})
	switch {
	case errors.Is(err, keysmash.ErrNoKeys):
		m.status = "keysmash: no keys selected"
	case err != nil:
		m.status = err.Error()
	default:
		m.status = fmt.Sprintf("keysmash %s @ %d/s", k.Mode, k.Rate)
	}
}

// applyConfig takes live-editable settings from a reloaded config
func (m *Model) applyConfig(c *config.Config) {
	m.mapper().SetLayout(c.Layout)
	m.mapper().SetTranspose(c.Transpose)
	if c.Speed != m.Player.Speed() {
		m.Player.SetSpeed(c.Speed)
	}
	if c.Merge() != m.Player.Merge() {
		m.Player.SetMerge(c.Merge())
	}
	history := m.Config.History
	*m.Config = *c
	if len(c.History) == 0 {
		m.Config.History = history
	}
	debug.Log("tui", "config applied layout=%s transpose=%d", c.Layout, c.Transpose)
}

func (m Model) save() {
	if m.ConfigPath == "" {
		return
	}
	if err := m.Config.SaveTo(m.ConfigPath); err != nil {
		debug.Error("save config", zap.Error(err))
	}
}

func nextLayout(cur keymap.Layout) keymap.Layout {
	all := keymap.Layouts()
	for i, l := range all {
		if l == cur {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.Theme
	p := m.Player
	mp := m.mapper()

	name := p.FileName()
	if name == "" {
		name = "(no file)"
	}
	sym := th.TransportSymbol(p.IsPlaying(), p.IsPaused())

	header := th.Title().Render(fmt.Sprintf("go-lyre  %c  %s", sym, name))
	progress := fmt.Sprintf("%s %s %s",
		player.FormatTime(p.Position()),
		widgets.RenderProgress(th, barWidth, p.PositionPercent()),
		player.FormatTime(p.Duration()),
	)

	outState := "live"
	if !m.Output.Enabled() {
		outState = "muted"
	}
	merge := "off"
	if mg := p.Merge(); mg.Enabled {
		merge = fmt.Sprintf("%.0fms", mg.ThresholdMs)
	}
	settings := th.Text().Render(fmt.Sprintf("speed %.2fx  transpose %+d  layout %s  merge %s  output %s",
		p.Speed(), mp.Transpose(), mp.Layout(), merge, outState))

	rows := make([]widgets.TrackRow, 0)
	for _, t := range p.Tracks() {
		rows = append(rows, widgets.TrackRow{Name: t.Name, Instrument: t.Instrument, Enabled: t.Enabled, Notes: t.Notes})
	}

	lit := make(map[int]bool, len(m.lit))
	for i := range m.lit {
		lit[i] = true
	}

	help := th.Dim().Render("space:play/pause  s:stop  ←/→:seek  +/-:speed  [/]:transpose  l:layout  m:merge  1-9/enter:track  o:output  x:keysmash  r:recent  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(progress)
	out.WriteString("\n")
	out.WriteString(settings)
	out.WriteString("\n\n")
	out.WriteString(widgets.RenderKeyGrid(th, mp.Keys(), lit))
	out.WriteString("\n\n")
	if len(rows) > 0 {
		out.WriteString(widgets.RenderTrackList(th, rows, m.selected))
		out.WriteString("\n\n")
	}
	if m.status != "" {
		out.WriteString(th.Text().Render(m.status))
		out.WriteString("\n")
	}
	out.WriteString(help)

	return out.String()
}
