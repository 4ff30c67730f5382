package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	Play  rune // ▶
	Pause rune // ⏸
	Stop  rune // ■

	TrackOn  rune // ● enabled track
	TrackOff rune // ○ disabled track

	BarFull  rune // █ progress bar, played part
	BarEmpty rune // ░ progress bar, remaining part
}

func New(palette *Palette) *Theme {
	if palette == nil || len(palette.Colors) == 0 {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Play:  '▶',
			Pause: '⏸',
			Stop:  '■',

			TrackOn:  '●',
			TrackOff: '○',

			BarFull:  '█',
			BarEmpty: '░',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.15
	RoleMuted   = 0.3
	RoleFG      = 0.5
	RoleAccent  = 0.6
	RoleKeyLit  = 0.75
	RoleWarning = 0.85
	RoleSuccess = 1.0
)

func (t *Theme) color(role float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(role).Hex())
}

func (t *Theme) BG() lipgloss.Color      { return t.color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.color(RoleSurface) }
func (t *Theme) Muted() lipgloss.Color   { return t.color(RoleMuted) }
func (t *Theme) FG() lipgloss.Color      { return t.color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.color(RoleAccent) }
func (t *Theme) KeyLit() lipgloss.Color  { return t.color(RoleKeyLit) }
func (t *Theme) Warning() lipgloss.Color { return t.color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.color(RoleSuccess) }

// Title styles headings
func (t *Theme) Title() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Accent())
}

// Text styles normal text
func (t *Theme) Text() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.FG())
}

// Dim styles secondary text
func (t *Theme) Dim() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted())
}

// Key styles one key cap of the instrument grid
func (t *Theme) Key(lit bool) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	if lit {
		return s.Foreground(t.BG()).Background(t.KeyLit())
	}
	return s.Foreground(t.FG()).Background(t.Surface())
}

// TransportSymbol picks the glyph for a transport name
func (t *Theme) TransportSymbol(playing, paused bool) rune {
	switch {
	case paused:
		return t.Symbols.Pause
	case playing:
		return t.Symbols.Play
	}
	return t.Symbols.Stop
}
