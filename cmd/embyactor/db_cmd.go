package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hbq0405/emby-actor-processor/internal/config"
	"github.com/hbq0405/emby-actor-processor/internal/database"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"database"},
		Short:   "Database management commands",
		Long:    `Commands for inspecting and maintaining the identity map, translation cache, and activity logs.`,
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBPathCmd())
	cmd.AddCommand(newDBStatsCmd())
	cmd.AddCommand(newDBVacuumCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database file and run migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := database.OpenPath(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			fmt.Printf("Database ready at %s\n", db.Path())
			return nil
		},
	}
}

func newDBPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the database file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetDatabasePath()
			fmt.Println(path)
			if info, err := os.Stat(path); err == nil {
				fmt.Printf("Size: %d bytes\n", info.Size())
			} else {
				fmt.Println("Status: not initialized")
			}
			return nil
		},
	}
}

func newDBStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts for the identity map and related tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := database.OpenPath(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			identities, err := database.CountIdentities(db.Raw())
			if err != nil {
				return fmt.Errorf("counting identities: %w", err)
			}
			watchlist, err := database.ActiveWatchlist(db.Raw())
			if err != nil {
				return fmt.Errorf("listing watchlist: %w", err)
			}
			subs, err := database.ListActorSubscriptions(db.Raw())
			if err != nil {
				return fmt.Errorf("listing actor subscriptions: %w", err)
			}
			collections, err := database.AllCustomCollections(db.Raw())
			if err != nil {
				return fmt.Errorf("listing collections: %w", err)
			}
			media, err := database.AllMediaMetadata(db.Raw(), "")
			if err != nil {
				return fmt.Errorf("listing media metadata: %w", err)
			}

			fmt.Printf("Identity map rows:     %d\n", identities)
			fmt.Printf("Active watchlist:      %d\n", len(watchlist))
			fmt.Printf("Actor subscriptions:   %d\n", len(subs))
			fmt.Printf("Custom collections:    %d\n", len(collections))
			fmt.Printf("Mirrored media items:  %d\n", len(media))
			return nil
		},
	}
}

func newDBVacuumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Reclaim space and defragment the database file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := database.OpenPath(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			if _, err := db.Raw().Exec("VACUUM"); err != nil {
				return fmt.Errorf("running vacuum: %w", err)
			}
			fmt.Println("Database vacuumed.")
			return nil
		},
	}
}
