package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go-lyre/midi"
	"go-lyre/output"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports and check for xdotool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()

		if output.NewXdotool().Available() {
			fmt.Fprintln(w, "xdotool: found")
		} else {
			fmt.Fprintln(w, "xdotool: not found (install it to press keys)")
		}

		ins, err := midi.InPorts()
		if err != nil {
			return err
		}
		listPorts(w, "MIDI Input Ports (for live)", ins)

		outs, err := output.OutPorts()
		if err != nil {
			return err
		}
		listPorts(w, "MIDI Output Ports (for --output midi)", outs)
		return nil
	},
}

func listPorts(w io.Writer, title string, names []string) {
	fmt.Fprintf(w, "\n=== %s ===\n", title)
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, n := range names {
		fmt.Fprintf(w, "  [%d] %s\n", i, n)
	}
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
