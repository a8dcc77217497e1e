package commands

import (
	"fmt"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/scrapers/timetable"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(termCmd)
}

var termCmd = &cobra.Command{
	Use:   "term <SUMMER|T1|T2|T3>",
	Short: "Prints the timetable's internal code for a term.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := timetable.ResolveTerm(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}
