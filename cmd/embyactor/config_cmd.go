package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hbq0405/emby-actor-processor/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage embyactor configuration",
		Long: `Commands for managing embyactor's TOML configuration file.

The config file defaults to ~/.config/emby-actor-processor/config.toml.

Examples:
  embyactor config init              # write a default config file
  embyactor config show              # print the resolved config
  embyactor config path               # print the config file location
  embyactor config set-password       # set the /status endpoint password`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigSetPasswordCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ConfigExists() && !force {
				path, _ := config.ConfigPath()
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}
			cfg := config.DefaultConfig()
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			path, _ := config.ConfigPath()
			fmt.Printf("Created config file: %s\n", path)
			fmt.Println("Edit it to set emby.url, emby.api_key, and tmdb.api_key before running 'embyactor serve'.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			fmt.Print(cfg.ToTOML())
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func newConfigSetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password",
		Short: "Set the password gating the /status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			plain, err := readPassword("New password: ")
			if err != nil {
				return err
			}
			if strings.TrimSpace(plain) == "" {
				return fmt.Errorf("password must not be empty")
			}
			if err := cfg.SetPassword(plain); err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Println("Password updated.")
			return nil
		},
	}
}

// readPassword reads a line from stdin. It doesn't suppress terminal
// echo; set-password is meant to be run interactively by an operator
// or piped from a secrets manager, neither of which needs that.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
