package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pruneDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history records older than the retention window",
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days (overrides config, 0 uses config)")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	days := a.cfg.History.RetentionDays
	if pruneDays > 0 {
		days = pruneDays
	}
	if days <= 0 {
		fmt.Println("retention is 0 (keep forever), nothing to prune")
		return nil
	}

	deleted, err := a.history.Prune(cmd.Context(), days)
	if err != nil {
		return err
	}

	fmt.Printf("pruned %d records older than %d days\n", deleted, days)
	return nil
}
