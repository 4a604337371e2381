package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newProductCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "product <id>",
		Short: "Show the full listing for a product",
		Long: `Resolve one product ID against the store edge service and print the
normalized listing: identity, description, images, rating and packaging.`,
		Example: `  storelistings product 9WZDNCRFJ3TJ
  storelistings product 9NBLGGH4NNS1 --market GB --language en-gb
  storelistings product 9WZDNCRFJ3TJ --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}

			header("Product: %s", p.ProductID)
			printField("title", p.Title)
			if p.PublisherName != "" {
				printField("publisher", p.PublisherName)
			}
			printField("installer", p.InstallerType.String())
			if p.Version != "" {
				printField("version", p.Version)
			}
			if p.PackageFamilyName != "" {
				printField("family_name", p.PackageFamilyName)
			}
			if p.IsBundle {
				printField("bundle", "yes")
			}
			if p.Rating != nil {
				count := ""
				if p.RatingCount != nil {
					count = fmt.Sprintf(" (%d ratings)", *p.RatingCount)
				}
				printField("rating", fmt.Sprintf("%.1f%s", *p.Rating, count))
			}
			if p.Size != nil {
				printField("size", humanBytes(*p.Size))
			}
			if p.Logo.URL != "" {
				printField("logo", p.Logo.URL)
			}
			printField("screenshots", fmt.Sprintf("%d", len(p.Screenshots)))
			if p.ShortDescription != "" {
				printField("summary", p.ShortDescription)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
