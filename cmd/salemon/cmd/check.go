package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Trigger a monitoring cycle on the server",
		RunE: func(_ *cobra.Command, _ []string) error {
			result, err := newClient().TriggerCheck(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(result)
			}
			fmt.Printf("%s: checked %d, notified %d, failed %d\n",
				result.Status,
				result.Summary.Checked,
				result.Summary.Notified,
				result.Summary.Failed,
			)
			return nil
		},
	}
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "detect <url>",
		Short:   "Auto-detect a price selector for a product page",
		Example: "  salemon detect https://shop.example/widget",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			det, err := newClient().DetectSelector(context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(det)
			}
			fmt.Printf("selector:   %s\nplatform:   %s\nconfidence: %.2f\n",
				det.Selector, det.Platform, det.Confidence)
			return nil
		},
	}
}
