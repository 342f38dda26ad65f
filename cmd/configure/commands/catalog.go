package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskquest/taskquest/internal/database"
	"github.com/taskquest/taskquest/internal/gamification"
)

// NewCatalogCmd creates the achievement catalog command with seed and
// list subcommands.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the achievement catalog",
		Long:  "Seed or inspect the achievement definitions stored in the database.",
	}
	cmd.AddCommand(newCatalogSeedCmd())
	cmd.AddCommand(newCatalogListCmd())
	return cmd
}

func newCatalogSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the achievement catalog",
		Long:  "Upsert the built-in achievement definitions. Safe to run repeatedly; the server also seeds on startup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeQuietly(db)

			repo := database.NewAchievementRepository(db)
			defs := gamification.DefaultCatalog()
			if err := repo.SeedDefinitions(context.Background(), defs); err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			fmt.Printf("Seeded %d achievement definitions.\n", len(defs))
			return nil
		},
	}
}

func newCatalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List achievement definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeQuietly(db)

			repo := database.NewAchievementRepository(db)
			defs, err := repo.ListDefinitions(context.Background())
			if err != nil {
				return fmt.Errorf("list catalog: %w", err)
			}
			if len(defs) == 0 {
				fmt.Println("No achievement definitions in database. Use 'catalog seed' to add them.")
				return nil
			}
			fmt.Println("Achievement catalog:")
			for _, def := range defs {
				fmt.Printf("  - %s: %s (%s, requires %d)\n", def.ID, def.Name, def.Metric, def.RequiredProgress)
			}
			return nil
		},
	}
}
