package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		product string
		out     string
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Download price history as CSV",
		Example: `  salemon export --out history.csv
  salemon export --product "Mechanical Keyboard"`,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := newClient().ExportCSV(context.Background(), product)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}

	c.Flags().StringVar(&product, "product", "", "export only this product (default all)")
	c.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return c
}
