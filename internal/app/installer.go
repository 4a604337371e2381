package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mjishnu/StoreListings/internal/download"
	"github.com/mjishnu/StoreListings/internal/util"
)

func newInstallerCmd() *cobra.Command {
	var (
		jsonOut bool
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "installer <id>",
		Short: "Resolve the unpackaged installer for a product",
		Long: `Look up the package manifest for a product distributed as a plain
installer (exe/msi) and print its download URL, silent switches and
checksum. With --dir the installer is downloaded and verified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := mfc.Installer(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			header("Installer: %s", info.FileName)
			printField("url", info.InstallerURL)
			if info.Version != "" {
				printField("version", info.Version)
			}
			if info.InstallerSwitches != "" {
				printField("silent", info.InstallerSwitches)
			}
			if info.InstallerSHA256 != "" {
				printField("sha256", info.InstallerSHA256)
			}

			if dir == "" {
				return nil
			}
			path, err := download.Save(cmd.Context(), hc, info.InstallerURL, dir, info.FileName)
			if err != nil {
				return err
			}
			sum, err := util.SHA256File(path)
			if err != nil {
				return err
			}
			if info.InstallerSHA256 != "" && !strings.EqualFold(sum, info.InstallerSHA256) {
				warn("checksum mismatch for %s: got %s, manifest says %s",
					filepath.Base(path), sum, info.InstallerSHA256)
			}
			ok("saved %s (sha256 %s)", path, sum)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&dir, "dir", "", "Download the installer into this directory")
	return cmd
}
