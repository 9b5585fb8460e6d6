package cli

import (
	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Message commands",
	}

	cmd.AddCommand(newMessageSendCmd())
	cmd.AddCommand(newMessageListCmd())
	cmd.AddCommand(newMessageGetCmd())

	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var streamID, topic, content, puppetName, puppetAvatar string
	var directTo, whisperUsers, whisperGroups, whisperPuppets []string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message",
		Long: `Send a channel or direct message.

Use --stream for a channel message, or --to one or more user IDs for a
direct message. Whisper flags restrict visibility to the named users,
groups, and whoever currently handles the named puppets; they are only
valid on channel messages. --as sends the message in a puppet's voice,
registering the puppet if it does not exist yet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"content": content}

			if len(directTo) > 0 {
				req["kind"] = "direct"
				req["direct_to"] = directTo
			} else {
				req["kind"] = "channel"
				req["stream_id"] = streamID
			}
			if topic != "" {
				req["topic"] = topic
			}
			if puppetName != "" {
				req["puppet_name"] = puppetName
			}
			if puppetAvatar != "" {
				req["puppet_avatar_url"] = puppetAvatar
			}

			if len(whisperUsers)+len(whisperGroups)+len(whisperPuppets) > 0 {
				whisper := map[string]any{}
				if len(whisperUsers) > 0 {
					whisper["user_ids"] = whisperUsers
				}
				if len(whisperGroups) > 0 {
					whisper["group_ids"] = whisperGroups
				}
				if len(whisperPuppets) > 0 {
					whisper["puppet_ids"] = whisperPuppets
				}
				req["whisper"] = whisper
			}

			var result Message
			if err := client.Post("/api/v1/messages", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&streamID, "stream", "", "Stream ID (channel messages)")
	cmd.Flags().StringSliceVar(&directTo, "to", nil, "Recipient user IDs (direct messages)")
	cmd.Flags().StringVar(&topic, "topic", "", "Message topic")
	cmd.Flags().StringVar(&content, "content", "", "Message content (required)")
	cmd.Flags().StringVar(&puppetName, "as", "", "Send as this puppet")
	cmd.Flags().StringVar(&puppetAvatar, "as-avatar", "", "Puppet avatar URL")
	cmd.Flags().StringSliceVar(&whisperUsers, "whisper-user", nil, "Whisper to user ID (repeatable)")
	cmd.Flags().StringSliceVar(&whisperGroups, "whisper-group", nil, "Whisper to group ID (repeatable)")
	cmd.Flags().StringSliceVar(&whisperPuppets, "whisper-puppet", nil, "Whisper to puppet's handlers (repeatable)")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func newMessageListCmd() *cobra.Command {
	var streamID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the messages you can see in a stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MessageList

			if err := client.Get("/api/v1/streams/"+streamID+"/messages", &result); err != nil {
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

func newMessageGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <message-id>",
		Short: "Show a single message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Message

			if err := client.Get("/api/v1/messages/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
