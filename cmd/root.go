package cmd

import (
	"github.com/spf13/cobra"

	"github.com/thewriterben/wildcam-go/cmd/benchmark"
	"github.com/thewriterben/wildcam-go/cmd/selftest"
	"github.com/thewriterben/wildcam-go/cmd/watch"
	"github.com/thewriterben/wildcam-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wildcam",
		Short: "WildCAM capture and motion detection core",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		watch.Command(settings),
		selftest.Command(settings),
		benchmark.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Fusion.Policy, "policy", settings.Fusion.Policy,
		"Fusion policy: edge_only, difference_only, both_required, either_suffices, adaptive")
	rootCmd.PersistentFlags().IntVar(&settings.Capture.DeadlineMs, "deadline", settings.Capture.DeadlineMs,
		"Per-capture deadline in milliseconds")
}
