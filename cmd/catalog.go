package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/grc-cli/internal/registry"
	"github.com/sells-group/grc-cli/internal/taxonomy"
)

var packsCmd = &cobra.Command{
	Use:   "packs",
	Short: "Inspect installed control packs",
}

var packsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed control packs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		packs, err := registry.NewPackRegistry(cfg.Packs.Dir).List(cmd.Context())
		if err != nil {
			return err
		}
		if len(packs) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No packs found in %s.\n", cfg.Packs.Dir)
			return nil
		}
		formatPacksList(cmd.OutOrStdout(), packs)
		return nil
	},
}

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect the industry taxonomy",
}

var taxonomyIndustriesCmd = &cobra.Command{
	Use:   "industries",
	Short: "Print the industry / segment / use case tree",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tax, err := taxonomy.Load(cfg.Taxonomy.Path)
		if err != nil {
			return err
		}
		formatIndustries(cmd.OutOrStdout(), tax.Industries())
		return nil
	},
}

func init() {
	packsCmd.AddCommand(packsListCmd)
	taxonomyCmd.AddCommand(taxonomyIndustriesCmd)
	rootCmd.AddCommand(packsCmd)
	rootCmd.AddCommand(taxonomyCmd)
}
