package cmd

import (
	"fmt"

	"github.com/jsphweid/sightreader/chord"
	"github.com/jsphweid/sightreader/sample"
	"github.com/jsphweid/sightreader/score"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	excerptPath     string
	excerptFrom     int
	excerptMeasures int
)

func init() {
	inspectCmd.Flags().StringVar(&excerptPath, "excerpt", "", "write the passage as a MIDI file to this path")
	inspectCmd.Flags().IntVar(&excerptFrom, "from", 1, "first measure of the excerpt")
	inspectCmd.Flags().IntVar(&excerptMeasures, "measures", 4, "measures in the excerpt, 0 for the rest of the score")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <score>",
	Short: "Inspects a score",
	Long: `Prints the measures and onset groups play would follow for a MIDI or JSON score.
With --excerpt, also renders a passage of it to a MIDI file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := score.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Println(s.String())
		for i, m := range s.Measures {
			fmt.Printf("measure %v (position %v):", m.Number, i)
			for _, g := range m.Groups {
				fmt.Printf(" [%v]", chord.CreateChordKey(g.Pitches()))
			}
			fmt.Println()
		}

		if excerptPath == "" {
			return nil
		}
		mf, err := sample.Create(s, excerptFrom, excerptMeasures)
		if err != nil {
			return err
		}
		if err := mf.WriteFile(excerptPath); err != nil {
			return errors.Wrapf(err, "writing %s", excerptPath)
		}
		fmt.Printf("wrote measures from %v to %v\n", excerptFrom, excerptPath)
		return nil
	},
}
