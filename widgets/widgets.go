package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-lyre/keymap"
	"go-lyre/theme"
)

// RenderKeyGrid draws the 21 keys as they sit on the instrument: highest
// row on top. lit holds key indices to highlight.
func RenderKeyGrid(th *theme.Theme, keys []keymap.Symbol, lit map[int]bool) string {
	const perRow = keymap.NumKeys / 3
	var rows []string
	for row := 2; row >= 0; row-- {
		var caps []string
		for col := 0; col < perRow; col++ {
			i := row*perRow + col
			label := "?"
			if i < len(keys) {
				label = strings.ToUpper(string(keys[i]))
			}
			caps = append(caps, th.Key(lit[i]).Render(label))
		}
		names := make([]string, 0, perRow)
		for col := 0; col < perRow; col++ {
			names = append(names, fmt.Sprintf("%-3s", keymap.NoteName(row*perRow+col)))
		}
		rows = append(rows, strings.Join(caps, " "), th.Dim().Render(strings.Join(names, " ")))
	}
	return strings.Join(rows, "\n")
}

// RenderProgress draws a bar width cells wide, pct in 0-100
func RenderProgress(th *theme.Theme, width int, pct float64) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	full := int(float64(width) * pct / 100)
	bar := lipgloss.NewStyle().Foreground(th.Accent()).Render(strings.Repeat(string(th.Symbols.BarFull), full))
	rest := th.Dim().Render(strings.Repeat(string(th.Symbols.BarEmpty), width-full))
	return bar + rest
}

// RenderTrackList renders one line per track, marking the selected one
func RenderTrackList(th *theme.Theme, tracks []TrackRow, selected int) string {
	var lines []string
	for i, t := range tracks {
		mark := th.Symbols.TrackOff
		style := th.Dim()
		if t.Enabled {
			mark = th.Symbols.TrackOn
			style = th.Text()
		}
		cursor := "  "
		if i == selected {
			cursor = "> "
			style = style.Bold(true)
		}
		line := fmt.Sprintf("%s%d %c %-24s %5d notes", cursor, i+1, mark, t.Name, t.Notes)
		if t.Instrument != "" {
			line += "  " + t.Instrument
		}
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}

// TrackRow is what RenderTrackList needs to know about a track
type TrackRow struct {
	Name       string
	Instrument string
	Enabled    bool
	Notes      int
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
