// Command lp-gg lists, prints and runs vertex programs.
//
//	lp-gg list
//	lp-gg gen sssp --cooperative -o out/
//	lp-gg run sssp -g graph.txt --source 0 --check
//	lp-gg run --file prog.hcl -g graph.txt --param local_alpha=0.2
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ScottSallinen/lollipop-gg/utils"
)

var (
	logLevel int
	noColour bool

	rootCmd = &cobra.Command{
		Use:           "lp-gg",
		Short:         "Lower vertex programs to device kernels and run them on the emulated device",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColour {
				utils.SetLoggerConsole(true)
			}
			utils.SetLevel(logLevel)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&logLevel, "debug", "d", 0, "Log level: 0 info, 1 debug, 2 trace")
	rootCmd.PersistentFlags().BoolVar(&noColour, "no-colour", false, "Disable coloured log output")
	rootCmd.AddCommand(listCmd, genCmd, runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Msg(err.Error())
		stop()
		os.Exit(1)
	}
}
