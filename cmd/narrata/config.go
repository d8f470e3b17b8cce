package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/narrata/narrata/internal/api"
	"github.com/narrata/narrata/internal/config"
	"github.com/narrata/narrata/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the narrata configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file under the narrata home directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := dir.EnsureExists(); err != nil {
			return err
		}
		if dir.ConfigExists() {
			return fmt.Errorf("config already exists at %s", dir.ConfigPath())
		}
		if err := config.WriteDefault(dir.ConfigPath()); err != nil {
			return err
		}

		fmt.Printf("Wrote default config to %s\n", dir.ConfigPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := loadConfig()
		if err != nil {
			return err
		}
		return api.Output(cm.Get())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
