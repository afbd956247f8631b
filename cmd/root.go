package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"launcherstats/cmd/migrate"
	"launcherstats/cmd/serve"
	"launcherstats/cmd/stats"
)

const (
	Version = "1.0.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "launcherstats",
		Short: "launcher telemetry backend",
		Long: fmt.Sprintf(`launcherstats (v%s)

Receives heartbeats, hardware reports and event batches from launcher
instances and serves daily active user statistics.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of launcherstats",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "launcherstats v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(migrate.MigrateCmd)
	RootCmd.AddCommand(stats.StatsCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
