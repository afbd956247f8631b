package util

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"launcherstats/internal/config"
	"launcherstats/internal/log"
	"launcherstats/internal/store"
)

// LoadConfig binds the command's flags to viper and reads the configuration.
// It is meant to run as PreRunE.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.Init(viper.GetViper())
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// OpenStore connects to the database described by cfg.
func OpenStore(cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(store.Options{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	return store.New(db), nil
}

// CloseStore releases the connection pool.
func CloseStore(s *store.Store) {
	if sqlDB, err := s.DB().DB(); err == nil {
		_ = sqlDB.Close()
	}
}
