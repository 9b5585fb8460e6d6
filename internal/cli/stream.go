package cli

import (
	"github.com/spf13/cobra"
)

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream management commands",
	}

	cmd.AddCommand(newStreamCreateCmd())
	cmd.AddCommand(newStreamListCmd())
	cmd.AddCommand(newStreamGetCmd())

	return cmd
}

func newStreamCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name}
			var result Stream

			if err := client.Post("/api/v1/streams", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Stream name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newStreamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StreamList

			if err := client.Get("/api/v1/streams", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newStreamGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <stream-id>",
		Short: "Show stream details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Stream

			if err := client.Get("/api/v1/streams/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
