package migrate

import (
	"github.com/spf13/cobra"

	cmdUtil "launcherstats/cmd/util"
	"launcherstats/internal/config"
	"launcherstats/internal/log"
	"launcherstats/internal/store"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the telemetry tables",
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

		if err := store.Migrate(st.DB()); err != nil {
			return err
		}
		log.Default.Info("tables migrated")
		return nil
	},
}

func init() {
	config.DatabaseFlags(MigrateCmd.Flags())
}
