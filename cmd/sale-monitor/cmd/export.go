package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	exportProduct string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export price history as CSV",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportProduct, "product", "", "export only this product (default all)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return a.history.ExportCSV(cmd.Context(), out, exportProduct)
}
