package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func productsCmd() *cobra.Command {
	var enabledOnly bool

	c := &cobra.Command{
		Use:   "products",
		Short: "List monitored products and their state",
		Example: `  salemon products
  salemon products --enabled
  salemon products --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			products, err := newClient().ListProducts(context.Background(), enabledOnly)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(products)
			}
			if len(products) == 0 {
				fmt.Println("No products found.")
				return nil
			}
			return printProductsTable(products)
		},
	}

	c.Flags().BoolVar(&enabledOnly, "enabled", false, "only show enabled products")
	return c
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <product>",
		Short: "Clear a product's stored monitoring state",
		Long: "Clears the product's last price and cooldown stamps so the next\n" +
			"cycle treats it as never checked. Price history is not touched.",
		Example: `  salemon reset "Mechanical Keyboard"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := newClient().ResetState(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("State cleared for %q.\n", args[0])
			return nil
		},
	}
}
