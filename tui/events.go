package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"go-lyre/config"
	"go-lyre/keymap"
	"go-lyre/player"
	"go-lyre/timeline"
)

// UpdateMsg asks for a redraw after a transport change
type UpdateMsg struct{}

// NoteMsg lights up a key
type NoteMsg struct {
	Index int
}

// FinishedMsg reports the song ran out
type FinishedMsg struct{}

// ConfigMsg carries a config reloaded from disk
type ConfigMsg struct {
	Config *config.Config
}

// NewUpdateChan makes the channel player and watcher callbacks post to
func NewUpdateChan() chan tea.Msg {
	return make(chan tea.Msg, 64)
}

// post never blocks the playback goroutine; a full channel drops the message
func post(ch chan<- tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
	}
}

// PlayerEvents forwards player callbacks onto ch
func PlayerEvents(ch chan<- tea.Msg, mapper *keymap.Mapper) player.Events {
	return player.Events{
		OnNote: func(_ timeline.Note, key keymap.Symbol, ok bool) {
			if !ok {
				return
			}
			if i, found := mapper.IndexOf(key); found {
				post(ch, NoteMsg{Index: i})
			}
		},
		OnStarted:  func() { post(ch, UpdateMsg{}) },
		OnStopped:  func() { post(ch, UpdateMsg{}) },
		OnFinished: func() { post(ch, FinishedMsg{}) },
	}
}

// ConfigReloaded returns a config.Watch callback posting onto ch
func ConfigReloaded(ch chan<- tea.Msg) func(*config.Config) {
	return func(c *config.Config) {
		post(ch, ConfigMsg{Config: c})
	}
}

// ListenForUpdates waits for the next message from the channel
func ListenForUpdates(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}
