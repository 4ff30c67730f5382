package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-lyre/midi"
)

var liveInput string

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Play a connected MIDI keyboard on the lyre",
	Long: `Listens on MIDI inputs and presses the lyre key for every note played.
Keyboards are picked up when plugged in and dropped when unplugged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dm := midi.NewDeviceManager(liveInput, midi.Relay(a.mapper, a.out))
		go dm.Run(ctx)

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "layout %s, transpose %+d; waiting for MIDI input, Ctrl+C to stop\n", a.mapper.Layout(), a.mapper.Transpose())
		for ev := range dm.Events() {
			fmt.Fprintf(w, "%s: %s\n", ev.ID, ev.Type)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().StringVarP(&liveInput, "input", "i", "", "only use inputs whose name contains this")
}
