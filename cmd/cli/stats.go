package cli

import (
	"fmt"
	"sort"

	"github.com/axellelanca/linkstats/cmd"
	"github.com/spf13/cobra"
)

var statsOwnerFlag string

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [hash]",
	Short: "Affiche les statistiques d'un lien ou de tous les liens d'un propriétaire.",
	Long: `Sans hash, affiche le total des visites de tous les liens du propriétaire.
Avec un hash, affiche les vues uniques, le total et la répartition par navigateur et OS.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func init() {
	StatsCmd.Flags().StringVar(&statsOwnerFlag, "owner", "", "Owner identity")
	StatsCmd.MarkFlagRequired("owner")
	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(c *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	out := c.OutOrStdout()
	if len(args) == 0 {
		stats, err := b.stats.StatsForOwner(c.Context(), statsOwnerFlag)
		if err != nil {
			return fmt.Errorf("error retrieving statistics: %w", err)
		}
		fmt.Fprintf(out, "Total de visites pour %s: %d\n", statsOwnerFlag, stats.TotalViews)
		return nil
	}

	hash := args[0]
	stats, err := b.stats.StatsForLink(c.Context(), statsOwnerFlag, hash)
	if err != nil {
		return fmt.Errorf("error retrieving statistics for %q: %w", hash, err)
	}

	fmt.Fprintf(out, "Statistiques pour le hash: %s\n", hash)
	fmt.Fprintf(out, "URL longue: %s\n", stats.URL)
	fmt.Fprintf(out, "Date de création: %s\n", stats.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Vues uniques: %d\n", stats.UniqueViews)
	fmt.Fprintf(out, "Total de vues: %d\n", stats.TotalViews)
	printBreakdown(c, "Navigateurs", stats.Browsers)
	printBreakdown(c, "Systèmes", stats.OS)
	return nil
}

func printBreakdown(c *cobra.Command, title string, counts map[string]int64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(c.OutOrStdout(), "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(c.OutOrStdout(), "  %-20s %d\n", k, counts[k])
	}
}
