package app

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/mjishnu/StoreListings/internal/download"
	"github.com/mjishnu/StoreListings/internal/util"
)

func newDownloadCmd() *cobra.Command {
	var (
		jsonOut     bool
		printOnly   bool
		dir         string
		latestOnly  bool
		osVersion   string
		flightRing  string
		branch      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Resolve download links for a packaged app and its dependencies",
		Long: `Drive the update sync protocol for a packaged product: fetch its
package metadata, sync the update category, and resolve download links
for every available version together with the framework packages it
needs. Without --dir or --print-only the links are printed; with --dir
the newest version's files are saved and their checksums reported.`,
		Example: `  storelistings download 9WZDNCRFJ3TJ --print-only
  storelistings download 9WZDNCRFJ3TJ --dir ./pkgs
  storelistings download 9WZDNCRFJ3TJ --os-version 10.0.19045.0 --flight-ring Retail`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			osd, err := osDescriptor(osVersion, flightRing, branch)
			if err != nil {
				return err
			}

			var opts []download.Option
			if concurrency > 0 {
				opts = append(opts, download.WithConcurrency(concurrency))
			}
			resolver := download.NewResolver(store, syncc, opts...)
			groups, err := resolver.Resolve(cmd.Context(), args[0], osd)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				warn("No downloadable versions for %s on %s %s", args[0], osd.Family, osd.OSVersion)
				return nil
			}
			if latestOnly {
				groups = groups[:1]
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(groups)
			}

			if dir == "" || printOnly {
				printGroups(groups)
				return nil
			}

			// Saving always takes the newest version only.
			g := groups[0]
			items := append([]download.Item{g.Main}, g.Dependencies...)
			for _, it := range items {
				path, err := download.Save(cmd.Context(), hc, it.Download.Package.URL, dir, it.Update.FileName)
				if err != nil {
					return err
				}
				sum, err := util.SHA256File(path)
				if err != nil {
					return err
				}
				ok("saved %s (sha256 %s)", path, sum)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&printOnly, "print-only", false, "Print links even when --dir is set")
	cmd.Flags().StringVar(&dir, "dir", "", "Save the newest version's files into this directory")
	cmd.Flags().BoolVar(&latestOnly, "latest", false, "Only show the newest version")
	cmd.Flags().StringVar(&osVersion, "os-version", "", "Target OS version, e.g. 10.0.22621.0")
	cmd.Flags().StringVar(&flightRing, "flight-ring", "", "Flight ring, e.g. Retail or WIF")
	cmd.Flags().StringVar(&branch, "branch", "", "OS branch, e.g. ni_release")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel download-info requests")

	return cmd
}

func printGroups(groups []download.Group) {
	for _, g := range groups {
		header("%s %s", g.Main.Update.PackageIdentityName, g.Main.Update.Version)
		printField("file", g.Main.Update.FileName)
		printField("url", g.Main.Download.Package.URL)
		if g.Main.Download.BlockmapCab != nil {
			printField("blockmap", g.Main.Download.BlockmapCab.URL)
		}
		for _, d := range g.Dependencies {
			printField("requires", d.Update.FileName)
			printField("url", d.Download.Package.URL)
		}
	}
}
