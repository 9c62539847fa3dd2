package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"community-service/backend/config"
)

func main() {
	var configDir string

	root := &cobra.Command{
		Use:           "community-server",
		Short:         "Interactions, badge store, history and notifications for the community",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml")

	loadConfig := func() (*config.Config, error) {
		if configDir != "" {
			return config.Load(configDir)
		}
		return config.Load()
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create tables and install the stored procedures",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg)
		},
	})

	var inv cacheInvalidation
	invalidate := &cobra.Command{
		Use:   "invalidate-cache",
		Short: "Drop cached counters or the badge catalog after editing them in the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return invalidateCache(cmd.Context(), cfg, inv)
		},
	}
	invalidate.Flags().BoolVar(&inv.catalog, "catalog", false, "drop the badge catalog and its rarity lookup")
	invalidate.Flags().StringSliceVar(&inv.posts, "post", nil, "post ids whose counters are dropped")
	root.AddCommand(invalidate)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
