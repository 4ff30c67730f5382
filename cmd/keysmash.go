package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-lyre/keysmash"
)

var (
	smashKeys     []int
	smashRate     int
	smashMode     string
	smashDuration time.Duration
)

var keysmashCmd = &cobra.Command{
	Use:   "keysmash",
	Short: "Press a set of keys repeatedly until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		set := keysmash.Settings{
			Keys: a.cfg.Keysmash.Keys,
			Rate: a.cfg.Keysmash.Rate,
			Mode: keysmash.Mode(a.cfg.Keysmash.Mode),
		}
		flags := cmd.Flags()
		if flags.Changed("keys") {
			set.Keys = smashKeys
		}
		if flags.Changed("rate") {
			set.Rate = smashRate
		}
		if flags.Changed("mode") {
			m, err := keysmash.ParseMode(smashMode)
			if err != nil {
				return err
			}
			set.Mode = m
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if smashDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, smashDuration)
			defer cancel()
		}

		s := keysmash.New(a.mapper, a.out)
		if err := s.Start(set); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "smashing %d keys, %s, Ctrl+C to stop\n", len(set.Keys), set.Mode)
		<-ctx.Done()
		s.Stop()
		fmt.Fprintf(cmd.OutOrStdout(), "%d presses\n", s.Presses())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysmashCmd)

	keysmashCmd.Flags().IntSliceVar(&smashKeys, "keys", nil, "key indices 0-20 (0 = lowest C)")
	keysmashCmd.Flags().IntVar(&smashRate, "rate", 10, "presses per second (1-50)")
	keysmashCmd.Flags().StringVar(&smashMode, "mode", "sequential", "sequential, random or chord")
	keysmashCmd.Flags().DurationVar(&smashDuration, "for", 0, "stop after this long")
}
