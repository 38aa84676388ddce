package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev" // set by build flags: -ldflags="-X main.version=1.0.0"
	cfgFile string
	verbose bool
	dryRun  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "embyactor",
		Short: "Cast-localization and side-load processor for Emby libraries",
		Long: `embyactor reconciles actor identities across Emby, TMDb, and Douban,
translates cast names, and side-loads the merged result into Emby's
local metadata cache so a provider refresh never overwrites it.

Features:
  - Cross-source person identity reconciliation (C1)
  - TMDb + Douban cast fusion, translation, and quality scoring (C9)
  - Side-loaded override cache Emby's own providers read back (C10)
  - Webhook-driven processing of newly added items (C13)
  - A single-slot, cron-schedulable background task queue (C12)`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/emby-actor-processor/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "accepted but read by no command; the log level comes from the config file")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "accepted but read by no command; nothing is previewed")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDBCmd())
	rootCmd.AddCommand(newTaskCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("embyactor %s\n", version)
		},
	}
}
