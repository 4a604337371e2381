package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newPackagesCmd() *cobra.Command {
	var (
		jsonOut        bool
		includeNeutral bool
	)

	cmd := &cobra.Command{
		Use:   "packages <id>",
		Short: "List the packaging targets for a product",
		Long: `Resolve a product against the display catalog and print each package's
identity, version, architecture and declared dependencies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs, err := store.Packages(cmd.Context(), args[0], includeNeutral)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(pkgs)
			}

			if len(pkgs) == 0 {
				warn("No packages listed for %s", args[0])
				return nil
			}
			for _, p := range pkgs {
				header("%s %s (%s)", p.PackageIdentityName, p.AppVersion, p.Architecture)
				if p.PackageFullName != "" {
					printField("full_name", p.PackageFullName)
				}
				if p.WuCategoryID != "" {
					printField("category", p.WuCategoryID)
				}
				for _, d := range p.PlatformDependencies {
					printField("platform", fmt.Sprintf("%s >= %s", d.PlatformFamily, d.MinVersion))
				}
				for _, d := range p.FrameworkDependencies {
					printField("requires", fmt.Sprintf("%s >= %s", d.PackageIdentity, d.MinVersion))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&includeNeutral, "neutral", true, "Also request the locale-neutral listing")
	return cmd
}
