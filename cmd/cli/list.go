package cli

import (
	"fmt"

	"github.com/axellelanca/linkstats/cmd"
	"github.com/spf13/cobra"
)

var (
	listOwnerFlag string
	listPageFlag  int
)

// ListCmd représente la commande 'list'
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Liste les liens d'un propriétaire, par pages de 10.",
	RunE: func(c *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		page := listPageFlag
		if page < 1 {
			page = 1
		}
		result, err := b.links.ListLinks(c.Context(), listOwnerFlag, page)
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}

		out := c.OutOrStdout()
		fmt.Fprintf(out, "Page %d/%d (%d liens)\n", result.Page, result.Pages, result.Total)
		for _, l := range result.Links {
			fmt.Fprintf(out, "  %-12s %s\n", l.Hash, l.URL)
		}
		if result.HasNextPage {
			fmt.Fprintf(out, "Page suivante: --page=%d\n", result.Page+1)
		}
		return nil
	},
}

func init() {
	ListCmd.Flags().StringVar(&listOwnerFlag, "owner", "", "Owner identity")
	ListCmd.Flags().IntVar(&listPageFlag, "page", 1, "Page number")
	ListCmd.MarkFlagRequired("owner")
	cmd.RootCmd.AddCommand(ListCmd)
}
