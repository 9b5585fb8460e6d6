package cli

import (
	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Agent registration and verification commands",
	}

	cmd.AddCommand(newAgentRegisterCmd())
	cmd.AddCommand(newAgentClaimCmd())
	cmd.AddCommand(newAgentStatusCmd())

	return cmd
}

func newAgentRegisterCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new agent and receive an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"agent_name": name}
			var result AgentRegistration

			if err := client.Post("/api/v1/agents/register", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Agent name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newAgentClaimCmd() *cobra.Command {
	var tweetURL string

	cmd := &cobra.Command{
		Use:   "claim <code>",
		Short: "Verify an agent by pointing at a tweet containing its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"tweet_url": tweetURL}
			var result AgentStatus

			if err := client.Post("/api/v1/agents/claim/"+args[0], req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&tweetURL, "tweet", "", "Tweet URL containing the verification code (required)")
	_ = cmd.MarkFlagRequired("tweet")

	return cmd
}

func newAgentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <agent-name>",
		Short: "Show an agent's verification status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AgentStatus

			if err := client.Get("/api/v1/agents/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
