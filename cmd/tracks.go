package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-lyre/keymap"
	"go-lyre/midifile"
	"go-lyre/player"
	"go-lyre/timeline"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks FILE",
	Short: "List the tracks of a MIDI file and how well they fit the lyre",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		src, err := midifile.Load(args[0])
		if err != nil {
			return err
		}
		tl := timeline.New(src, a.cfg.BuildOptions(), a.cfg.Merge())

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "length %s, %d notes, transpose %+d\n\n", player.FormatTime(tl.DurationMs), tl.NoteCount(), a.mapper.Transpose())
		fmt.Fprintln(w, "#\tNAME\tINSTRUMENT\tNOTES\tIN RANGE\tFOLDED\tUNPLAYABLE")
		for _, t := range tl.Tracks {
			direct, folded, missed := fit(a.mapper, t.Notes)
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n", t.ID+1, t.Name, t.Instrument, len(t.Notes), direct, folded, missed)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tracksCmd)
}

// fit counts notes that map directly, only after octave folding, or not at all
func fit(m *keymap.Mapper, notes []timeline.Note) (direct, folded, missed int) {
	for _, n := range notes {
		if _, ok := m.Resolve(n.Pitch, false); ok {
			direct++
			continue
		}
		if _, ok := m.Resolve(n.Pitch, true); ok {
			folded++
			continue
		}
		missed++
	}
	return
}
