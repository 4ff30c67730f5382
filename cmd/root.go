package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-lyre/config"
	"go-lyre/debug"
	"go-lyre/keymap"
	"go-lyre/keysmash"
	"go-lyre/output"
	"go-lyre/player"
	"go-lyre/theme"
	"go-lyre/tui"
)

var (
	configPath string
	layoutFlag string
	transpose  int
	speed      float64
	mergeFlag  bool
	outputKind string
	midiPort   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "go-lyre [FILE]",
	Short: "Play MIDI files on the in-game lyre by pressing keys",
	Long: `go-lyre turns MIDI files into key presses for the 21-key lyre:
notes are mapped onto three octaves of natural notes, transposed and
folded into range, and sent to the focused window with xdotool.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/go-lyre/config.json)")
	f.StringVarP(&layoutFlag, "layout", "l", "", "keyboard layout: QWERTY, QWERTZ, AZERTY, DVORAK")
	f.IntVarP(&transpose, "transpose", "t", 0, "transpose in semitones (-12..12)")
	f.Float64VarP(&speed, "speed", "s", 1.0, "playback speed (0.25..2)")
	f.BoolVarP(&mergeFlag, "merge", "m", false, "merge nearby notes")
	f.StringVarP(&outputKind, "output", "o", "", "key output: xdotool, midi or log")
	f.StringVar(&midiPort, "port", "", "MIDI output port name (with --output midi)")
	f.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// app is everything a command needs, built from config plus flags
type app struct {
	cfg      *config.Config
	cfgPath  string
	mapper   *keymap.Mapper
	out      *output.Toggle
	closeOut func() error
}

func setup(cmd *cobra.Command, console bool) (*app, error) {
	var (
		cfg  *config.Config
		path = configPath
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
		if err == nil {
			path, err = config.ConfigPath()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("layout") {
		l, err := keymap.ParseLayout(layoutFlag)
		if err != nil {
			return nil, err
		}
		cfg.Layout = l
	}
	if flags.Changed("transpose") {
		cfg.Transpose = transpose
	}
	if flags.Changed("speed") {
		cfg.Speed = speed
	}
	if flags.Changed("merge") {
		cfg.MergeNearby = mergeFlag
	}
	if flags.Changed("output") {
		cfg.Output.Kind = output.Kind(outputKind)
	}
	if flags.Changed("port") {
		cfg.Output.MIDIPort = midiPort
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	cfg.Normalize()

	logCfg := cfg.Log
	logCfg.Console = logCfg.Console || console
	if logCfg.Path == "" {
		if dir, err := config.ConfigDir(); err == nil {
			logCfg.Path = filepath.Join(dir, "go-lyre.log")
		}
	}
	if err := debug.Init(logCfg); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	mapper := keymap.NewMapper(cfg.Layout, cfg.Transpose)
	sink, closeOut, err := output.New(cfg.Output, mapper)
	if err != nil {
		return nil, err
	}
	if x, ok := output.FindXdotool(sink); ok && !x.Available() {
		debug.Warn("xdotool not found in PATH; key presses will fail")
	}

	return &app{
		cfg:      cfg,
		cfgPath:  path,
		mapper:   mapper,
		out:      output.NewToggle(sink),
		closeOut: closeOut,
	}, nil
}

func (a *app) newPlayer(ev player.Events) *player.Player {
	return player.New(a.mapper, a.out,
		player.WithEvents(ev),
		player.WithBuildOptions(a.cfg.BuildOptions()),
		player.WithMerge(a.cfg.Merge()),
		player.WithSpeed(a.cfg.Speed),
	)
}

// open loads path into p and remembers it in the history
func (a *app) open(p *player.Player, path string) error {
	if err := p.LoadFile(path); err != nil {
		return err
	}
	a.cfg.AddToHistory(path)
	if err := a.cfg.SaveTo(a.cfgPath); err != nil {
		debug.Warn("save config", zap.Error(err))
	}
	return nil
}

func (a *app) close() {
	if err := a.closeOut(); err != nil {
		debug.Warn("close output", zap.Error(err))
	}
	debug.Disable()
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	updates := tui.NewUpdateChan()
	p := a.newPlayer(tui.PlayerEvents(updates, a.mapper))
	defer p.Stop()

	smasher := keysmash.New(a.mapper, a.out)
	defer smasher.Stop()

	if len(args) == 1 {
		if err := a.open(p, args[0]); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := config.Watch(ctx, a.cfgPath, tui.ConfigReloaded(updates)); err != nil {
		debug.Warn("config watch disabled", zap.Error(err))
	}

	th := theme.New(theme.LoadOrDefault(a.cfg.Palette))
	m := tui.NewModel(p, a.out, smasher, a.cfg, th, updates)
	m.ConfigPath = a.cfgPath

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
