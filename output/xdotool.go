package output

import (
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"go-lyre/debug"
	"go-lyre/keymap"
)

// Xdotool presses keys in the focused X11 window through the xdotool binary
type Xdotool struct {
	bin string
}

// NewXdotool uses xdotool from PATH
func NewXdotool() *Xdotool {
	return &Xdotool{bin: "xdotool"}
}

// Available reports whether the binary can be found
func (x *Xdotool) Available() bool {
	_, err := exec.LookPath(x.bin)
	return err == nil
}

// Send starts xdotool and returns without waiting for it
func (x *Xdotool) Send(key keymap.Symbol) bool {
	if key == "" {
		return false
	}
	cmd := exec.Command(x.bin, "key", "--clearmodifiers", string(key))
	if err := cmd.Start(); err != nil {
		debug.Error("xdotool start failed", zap.String("key", string(key)), zap.Error(err))
		return false
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			debug.Warn("xdotool exited", zap.String("key", string(key)), zap.Error(err))
		}
	}()
	return true
}

// ActiveWindow returns the title of the focused window
func (x *Xdotool) ActiveWindow() (string, error) {
	out, err := exec.Command(x.bin, "getactivewindow", "getwindowname").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

var gameTitles = []string{"genshin impact", "genshin", "原神"}

// GameFocused reports whether the focused window looks like the game
func (x *Xdotool) GameFocused() bool {
	title, err := x.ActiveWindow()
	if err != nil {
		return false
	}
	title = strings.ToLower(title)
	for _, t := range gameTitles {
		if strings.Contains(title, t) {
			return true
		}
	}
	return false
}
