package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-lyre/debug"
	"go-lyre/output"
	"go-lyre/player"
)

var (
	playDelay     time.Duration
	playSeek      time.Duration
	playWaitFocus bool
	playQuiet     bool
)

var playCmd = &cobra.Command{
	Use:   "play FILE",
	Short: "Play a MIDI file without the interface",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().DurationVarP(&playDelay, "delay", "d", 3*time.Second, "wait before starting, to focus the game window")
	playCmd.Flags().DurationVar(&playSeek, "from", 0, "start position, e.g. 1m30s")
	playCmd.Flags().BoolVar(&playWaitFocus, "wait-focus", false, "wait until the game window is focused (xdotool output only)")
	playCmd.Flags().BoolVarP(&playQuiet, "quiet", "q", false, "no progress output")

	playCmd.Example = `  # play with a 5 second countdown
  go-lyre play -d 5s song.mid

  # dry run: log keys instead of pressing them
  go-lyre play -o log song.mid`
}

func runPlay(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finished := make(chan struct{})
	p := a.newPlayer(player.Events{
		OnFinished: func() { close(finished) },
	})
	defer p.Stop()

	if err := a.open(p, args[0]); err != nil {
		return err
	}
	if p.NoteCount() == 0 {
		return fmt.Errorf("%s: no playable notes", args[0])
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s  %s  %d notes  layout %s  transpose %+d  speed %.2fx\n",
		p.FileName(), player.FormatTime(p.Duration()), p.NoteCount(),
		a.mapper.Layout(), a.mapper.Transpose(), p.Speed())

	if playWaitFocus {
		x, ok := output.FindXdotool(a.out)
		if !ok {
			return fmt.Errorf("--wait-focus needs the xdotool output")
		}
		fmt.Fprintln(w, "waiting for the game window...")
		if err := waitFocus(ctx, x); err != nil {
			return err
		}
	}

	if playDelay > 0 {
		fmt.Fprintf(w, "starting in %s\n", playDelay)
		select {
		case <-time.After(playDelay):
		case <-ctx.Done():
			return nil
		}
	}

	if playSeek > 0 {
		p.Seek(float64(playSeek.Milliseconds()))
	}
	p.Play()

	progress := time.NewTicker(time.Second)
	defer progress.Stop()
	for {
		select {
		case <-finished:
			fmt.Fprintln(w, "\ndone")
			return nil
		case <-ctx.Done():
			fmt.Fprintln(w, "\nstopped")
			return nil
		case <-progress.C:
			if !playQuiet {
				fmt.Fprintf(w, "\r%s / %s  %5.1f%%", player.FormatTime(p.Position()),
					player.FormatTime(p.Duration()), p.PositionPercent())
			}
		}
	}
}

func waitFocus(ctx context.Context, x *output.Xdotool) error {
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()
	for !x.GameFocused() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	debug.Log("play", "game window focused")
	return nil
}
