package cli

import (
	"fmt"

	"github.com/axellelanca/linkstats/cmd"
	"github.com/spf13/cobra"
)

var (
	createOwnerFlag string
	longURLFlag     string
	hashFlag        string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Crée une URL courte à partir d'une URL longue.",
	Long: `Cette commande raccourcit une URL longue pour un propriétaire et affiche le hash généré.

Exemple:
  linkstats create --owner=alice --url="https://www.google.com/search?q=go+lang"
  linkstats create --owner=alice --url=example.com --hash=mine`,
	RunE: func(c *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		var explicit *string
		if c.Flags().Changed("hash") {
			explicit = &hashFlag
		}

		hash, err := b.links.CreateLink(c.Context(), createOwnerFlag, longURLFlag, explicit)
		if err != nil {
			return fmt.Errorf("failed to create short link: %w", err)
		}

		fmt.Fprintf(c.OutOrStdout(), "URL courte créée avec succès:\n")
		fmt.Fprintf(c.OutOrStdout(), "Hash: %s\n", hash)
		fmt.Fprintf(c.OutOrStdout(), "URL complète: %s/%s\n", b.cfg.Server.BaseURL, hash)
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&createOwnerFlag, "owner", "", "Owner identity of the new link")
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().StringVar(&hashFlag, "hash", "", "Explicit hash (at least 4 characters)")

	CreateCmd.MarkFlagRequired("owner")
	CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
