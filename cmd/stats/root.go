package stats

import (
	"encoding/json"

	"github.com/spf13/cobra"

	cmdUtil "launcherstats/cmd/util"
	"launcherstats/internal/config"
	"launcherstats/internal/log"
	"launcherstats/internal/stats"
)

// StatsCmd prints the same summary GET /stats serves, read straight from
// the database.
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the active user summary as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := cmdUtil.LoadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := cmdUtil.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer cmdUtil.CloseStore(st)

		engine := stats.NewEngine(stats.Options{
			Source:              st,
			Logger:              log.Default,
			MaxActiveIdentities: cfg.MaxActiveIdentities,
			Timeout:             cfg.StatsTimeout,
		})
		summary, err := engine.Compute(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	config.DatabaseFlags(StatsCmd.Flags())
	config.StatsFlags(StatsCmd.Flags())
}
