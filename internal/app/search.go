package app

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the store catalog",
		Example: `  storelistings search "visual studio code"
  storelistings search spotify --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := store.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cards)
			}
			if len(cards) == 0 {
				warn("No results for %q", args[0])
				return nil
			}
			printCards(cards)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSuggestCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Show search-as-you-type suggestions for a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := store.Suggest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cards)
			}
			if len(cards) == 0 {
				warn("No suggestions for %q", args[0])
				return nil
			}
			printCards(cards)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newFeaturedCmd() *cobra.Command {
	var (
		jsonOut    bool
		collection string
	)

	cmd := &cobra.Command{
		Use:   "featured",
		Short: "List a curated storefront collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := store.Featured(cmd.Context(), collection)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cards)
			}
			if len(cards) == 0 {
				warn("Collection %q is empty", collection)
				return nil
			}
			printCards(cards)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&collection, "collection", "TopFree", "Collection name, e.g. TopFree, TopPaid, New")
	return cmd
}
