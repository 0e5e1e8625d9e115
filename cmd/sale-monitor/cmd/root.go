// Package cmd implements the CLI commands for the sale-monitor server.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sale-monitor",
	Short: "Monitor product pages for price drops",
	Long: "A price-drop monitor that periodically extracts prices from product pages, " +
		"tracks their history, and sends notifications when a target price or " +
		"discount threshold is hit.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the root command, for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}
