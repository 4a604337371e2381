package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mjishnu/StoreListings/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the storelistings configuration",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the current effective configuration to disk",
		Long: `Write the effective configuration (defaults plus any flag overrides)
to ` + config.DefaultPath() + ` so it can be edited by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			ok("wrote %s", config.DefaultPath())
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			header("Defaults")
			printField("market", cfg.Defaults.Market)
			printField("language", cfg.Defaults.Language)
			printField("device_family", cfg.Defaults.DeviceFamily)
			printField("architecture", cfg.Defaults.EffectiveArchitecture())
			printField("download_dir", cfg.Defaults.EffectiveDownloadDir())
			header("Sync")
			printField("branch", cfg.Sync.Branch)
			printField("flight_ring", cfg.Sync.FlightRing)
			printField("os_version", cfg.Sync.OSVersion)
		},
	}
}
