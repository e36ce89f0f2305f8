package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func init() {
	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Lists MIDI ports",
	Long:  `Lists the MIDI input and output ports play can connect to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, err := rtmididrv.New()
		if err != nil {
			return errors.Wrap(err, "rtmididrv")
		}
		defer drv.Close()

		ins, err := drv.Ins()
		if err != nil {
			return errors.Wrap(err, "listing inputs")
		}
		for _, in := range ins {
			fmt.Printf("Input: %d : %s\n", in.Number(), in.String())
		}
		outs, err := drv.Outs()
		if err != nil {
			return errors.Wrap(err, "listing outputs")
		}
		for _, out := range outs {
			fmt.Printf("Output: %d : %s\n", out.Number(), out.String())
		}
		return nil
	},
}
