package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/sale-monitor/internal/extractor"
)

var detectCmd = &cobra.Command{
	Use:   "detect <url>",
	Short: "Auto-detect a price selector for a product page",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.extractor.FetchDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetching page: %w", err)
	}

	det := extractor.DetectSelector(doc)
	if det == nil {
		return fmt.Errorf("no price-like element detected on %s", args[0])
	}

	fmt.Printf("selector:   %s\nplatform:   %s\nconfidence: %.2f\n",
		det.Selector, det.Platform, det.Confidence)
	return nil
}
