package cli

import (
	"github.com/spf13/cobra"
)

func newPersonaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Persona management commands",
	}

	cmd.AddCommand(newPersonaListCmd())
	cmd.AddCommand(newPersonaCreateCmd())
	cmd.AddCommand(newPersonaGetCmd())
	cmd.AddCommand(newPersonaUpdateCmd())
	cmd.AddCommand(newPersonaDeleteCmd())

	return cmd
}

func newPersonaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PersonaList

			if err := client.Get("/api/v1/personas", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPersonaCreateCmd() *cobra.Command {
	var name, avatarURL, color, bio string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name}
			if avatarURL != "" {
				req["avatar_url"] = avatarURL
			}
			if color != "" {
				req["color"] = color
			}
			if bio != "" {
				req["bio"] = bio
			}
			var result Persona

			if err := client.Post("/api/v1/personas", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Persona name (required)")
	cmd.Flags().StringVar(&avatarURL, "avatar", "", "Avatar URL")
	cmd.Flags().StringVar(&color, "color", "", "Display color")
	cmd.Flags().StringVar(&bio, "bio", "", "Short bio")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPersonaGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <persona-id>",
		Short: "Show persona details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Persona

			if err := client.Get("/api/v1/personas/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPersonaUpdateCmd() *cobra.Command {
	var name, avatarURL, color, bio string

	cmd := &cobra.Command{
		Use:   "update <persona-id>",
		Short: "Update a persona",
		Long: `Update a persona. Only the flags you pass are changed; passing an
empty string clears that field.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			if cmd.Flags().Changed("name") {
				req["name"] = name
			}
			if cmd.Flags().Changed("avatar") {
				req["avatar_url"] = avatarURL
			}
			if cmd.Flags().Changed("color") {
				req["color"] = color
			}
			if cmd.Flags().Changed("bio") {
				req["bio"] = bio
			}
			var result Persona

			if err := client.Patch("/api/v1/personas/"+args[0], req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&avatarURL, "avatar", "", "New avatar URL")
	cmd.Flags().StringVar(&color, "color", "", "New display color")
	cmd.Flags().StringVar(&bio, "bio", "", "New bio")

	return cmd
}

func newPersonaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <persona-id>",
		Short: "Delete a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/personas/"+args[0], nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Persona deleted")
			return nil
		},
	}
}
