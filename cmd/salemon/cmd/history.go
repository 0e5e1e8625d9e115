package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// sinceFlag parses an optional --since duration into an absolute time.
func sinceFlag(since time.Duration) time.Time {
	if since <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-since)
}

func historyCmd() *cobra.Command {
	var since time.Duration

	c := &cobra.Command{
		Use:   "history [product]",
		Short: "Show a product's price history",
		Long: "Shows the recorded observations for a product, oldest first.\n" +
			"Without a product argument, lists the products that have history.",
		Example: `  salemon history
  salemon history "Mechanical Keyboard"
  salemon history "Mechanical Keyboard" --since 168h`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				names, err := newClient().HistoryProducts(context.Background())
				if err != nil {
					return err
				}
				if jsonOutput() {
					return outputJSON(names)
				}
				if len(names) == 0 {
					fmt.Println("No history recorded.")
					return nil
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			}

			records, err := newClient().History(context.Background(), args[0], sinceFlag(since))
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(records)
			}
			if len(records) == 0 {
				fmt.Println("No history recorded.")
				return nil
			}
			return printHistoryTable(records)
		},
	}

	c.Flags().DurationVar(&since, "since", 0, "only include records newer than this (e.g. 72h)")
	return c
}

func statsCmd() *cobra.Command {
	var since time.Duration

	c := &cobra.Command{
		Use:   "stats <product>",
		Short: "Show price statistics for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			stats, err := newClient().Stats(context.Background(), args[0], sinceFlag(since))
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(stats)
			}
			return printStatsDetail(args[0], stats)
		},
	}

	c.Flags().DurationVar(&since, "since", 0, "only include records newer than this (e.g. 72h)")
	return c
}

func changesCmd() *cobra.Command {
	var since time.Duration

	c := &cobra.Command{
		Use:   "changes <product>",
		Short: "Show the points where a product's price moved",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			changes, err := newClient().Changes(context.Background(), args[0], sinceFlag(since))
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(changes)
			}
			if len(changes) == 0 {
				fmt.Println("No price changes recorded.")
				return nil
			}
			return printChangesTable(changes)
		},
	}

	c.Flags().DurationVar(&since, "since", 0, "only include records newer than this (e.g. 72h)")
	return c
}
