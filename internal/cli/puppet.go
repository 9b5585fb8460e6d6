package cli

import (
	"github.com/spf13/cobra"
)

func newPuppetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "puppet",
		Short: "Puppet and handler commands",
	}

	cmd.AddCommand(newPuppetRegisterCmd())
	cmd.AddCommand(newPuppetListCmd())
	cmd.AddCommand(newPuppetGetCmd())
	cmd.AddCommand(newPuppetClaimCmd())
	cmd.AddCommand(newPuppetUnclaimCmd())
	cmd.AddCommand(newPuppetVisibilityCmd())
	cmd.AddCommand(newPuppetHandlersCmd())

	return cmd
}

func newPuppetRegisterCmd() *cobra.Command {
	var streamID, name, avatarURL, color string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register or refresh a puppet in a stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"name": name}
			if avatarURL != "" {
				req["avatar_url"] = avatarURL
			}
			if cmd.Flags().Changed("color") {
				req["color"] = color
			}
			var result Puppet

			if err := client.Post("/api/v1/streams/"+streamID+"/puppets", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&streamID, "stream", "", "Stream ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Puppet name (required)")
	cmd.Flags().StringVar(&avatarURL, "avatar", "", "Avatar URL")
	cmd.Flags().StringVar(&color, "color", "", "Display color (empty string clears it)")
	_ = cmd.MarkFlagRequired("stream")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPuppetListCmd() *cobra.Command {
	var streamID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a stream's puppets",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PuppetList

			if err := client.Get("/api/v1/streams/"+streamID+"/puppets", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&streamID, "stream", "", "Stream ID (required)")
	_ = cmd.MarkFlagRequired("stream")

	return cmd
}

func newPuppetGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <puppet-id>",
		Short: "Show puppet details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Puppet

			if err := client.Get("/api/v1/puppets/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPuppetClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <puppet-id>",
		Short: "Claim a puppet as its handler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Handler

			if err := client.Post("/api/v1/puppets/"+args[0]+"/claim", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPuppetUnclaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unclaim <puppet-id>",
		Short: "Release a claimed puppet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result UnclaimResult

			if err := client.Delete("/api/v1/puppets/"+args[0]+"/claim", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPuppetVisibilityCmd() *cobra.Command {
	var mode string
	var windowHours int

	cmd := &cobra.Command{
		Use:   "visibility <puppet-id>",
		Short: "Change a puppet's visibility mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"visibility_mode": mode}
			if cmd.Flags().Changed("window") {
				req["recent_handler_window_hours"] = windowHours
			}
			var result Puppet

			if err := client.Patch("/api/v1/puppets/"+args[0]+"/visibility", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Visibility mode: open, claimed (required)")
	cmd.Flags().IntVar(&windowHours, "window", 0, "Recent-handler window in hours (open mode)")
	_ = cmd.MarkFlagRequired("mode")

	return cmd
}

func newPuppetHandlersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handlers <puppet-id>",
		Short: "List a puppet's handler associations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HandlerList

			if err := client.Get("/api/v1/puppets/"+args[0]+"/handlers", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
