package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one monitoring cycle and exit",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.engine.RunCycle(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("checked: %d  notified: %d  failed: %d  (%s)\n",
		summary.Checked, summary.Notified, summary.Failed, summary.Duration.Round(0))
	return nil
}
