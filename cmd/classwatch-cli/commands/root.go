package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool
var tel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "classwatch-cli",
	Short: "classwatch-cli checks the UNSW timetable for classes with open seats.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)
		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "classwatch-cli")
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return tel.Shutdown(context.Background())
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
