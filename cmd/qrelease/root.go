package main

import (
	"github.com/spf13/cobra"

	"github.com/warp/qrelease/release"
)

func newRootCommand() *cobra.Command {
	return buildRootCommand(nil)
}

func buildRootCommand(clock release.Clock) *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag, clock)

	rootCmd := &cobra.Command{
		Use:           "qrelease",
		Short:         "Periodic release calendar calculator",
		Long:          "qrelease works out which release period a date falls in and lists the periods around it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	// Bare "qrelease" behaves like "qrelease window".
	windowCmd := newWindowCommand(ctx)
	rootCmd.RunE = windowCmd.RunE
	rootCmd.Flags().AddFlagSet(windowCmd.Flags())

	rootCmd.AddCommand(windowCmd)
	rootCmd.AddCommand(newPeriodCommand(ctx))
	rootCmd.AddCommand(newICSCommand(ctx))
	rootCmd.AddCommand(newCalendarsCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
