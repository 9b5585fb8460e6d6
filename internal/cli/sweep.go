package cli

import (
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var commit bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reclaim stale recent-handler rows",
		Long: `Scan recent-handler rows and remove those outside their puppet's
recency window. Runs as a dry run by default; pass --for-real to
actually delete.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req any
			if commit {
				req = map[string]bool{"commit": true}
			}
			var result SweepResult

			if err := client.Post("/api/v1/maintenance/sweep-handlers", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&commit, "for-real", false, "Actually delete stale rows instead of counting them")

	return cmd
}
