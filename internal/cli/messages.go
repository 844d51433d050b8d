package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/anle/alumnet/internal/assemble"
	"github.com/anle/alumnet/internal/model"
	"github.com/anle/alumnet/internal/query"
)

// NewMessagesCommand creates the messages command group.
func NewMessagesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Read and send direct messages",
	}

	cmd.AddCommand(newMessagesListCommand(rootOpts))
	cmd.AddCommand(newMessagesShowCommand(rootOpts))
	cmd.AddCommand(newMessagesSendCommand(rootOpts))
	cmd.AddCommand(newMessagesStartCommand(rootOpts))

	return cmd
}

func newMessagesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your conversations, most recent activity first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			sess, err := app.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			q := query.New("conversations", func(ctx context.Context) ([]assemble.ConversationView, error) {
				return app.Views.Conversations(ctx, sess.UserID)
			}, query.Options[[]assemble.ConversationView]{Retryer: app.Monitor})

			snap := q.Fetch(cmd.Context())
			if snap.Err != "" {
				return fmt.Errorf("fetching conversations: %s", snap.Err)
			}

			out := cmd.OutOrStdout()
			for _, conv := range snap.Data {
				fmt.Fprintf(out, "%s  %s\n", conv.Conversation.ID, participantNames(sess.UserID, conv.Participants))
				if conv.LastMessage != nil {
					fmt.Fprintf(out, "    %s: %s\n", conv.LastMessage.Sender.FullName, conv.LastMessage.Content)
				}
			}
			if len(snap.Data) == 0 {
				fmt.Fprintln(out, "no conversations")
			}
			return nil
		},
	}
}

func participantNames(viewerID string, participants []model.Profile) string {
	names := ""
	for _, p := range participants {
		if p.ID == viewerID {
			continue
		}
		if names != "" {
			names += ", "
		}
		names += p.FullName
	}
	if names == "" {
		names = "(just you)"
	}
	return names
}

func newMessagesShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show a conversation's messages, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.requireSession(cmd.Context()); err != nil {
				return err
			}
			convID := args[0]

			// Offline fallback: the last successfully fetched copy of this
			// thread, served when every remote attempt fails.
			fallback := cachedMessageViews(cmd.Context(), app, convID)

			q := query.New("messages", func(ctx context.Context) ([]assemble.MessageView, error) {
				return app.Views.Messages(ctx, convID)
			}, query.Options[[]assemble.MessageView]{
				Retryer:  app.Monitor,
				Fallback: fallback,
			})

			snap := q.Fetch(cmd.Context())
			if snap.Err != "" && !snap.FromFallback {
				return fmt.Errorf("fetching messages: %s", snap.Err)
			}

			out := cmd.OutOrStdout()
			if snap.FromFallback {
				fmt.Fprintln(out, "(offline: showing cached copy)")
			} else {
				storeMessageViews(cmd.Context(), app, snap.Data)
			}

			printMessages(out, snap.Data)
			return nil
		},
	}
}

func printMessages(out io.Writer, msgs []assemble.MessageView) {
	for _, msg := range msgs {
		fmt.Fprintf(out, "[%s] %s: %s\n",
			msg.CreatedAt.Local().Format("2006-01-02 15:04"),
			msg.Sender.FullName, msg.Content)
	}
}

// cachedMessageViews rebuilds message views from the local mirror. Sender
// profiles missing from the cache render as the placeholder.
func cachedMessageViews(ctx context.Context, app *App, conversationID string) *[]assemble.MessageView {
	msgs, err := app.Cache.GetMessages(ctx, conversationID)
	if err != nil || len(msgs) == 0 {
		return nil
	}
	views := make([]assemble.MessageView, 0, len(msgs))
	for _, m := range msgs {
		sender := model.PlaceholderProfile(m.SenderID)
		if p, err := app.Cache.GetProfileByID(ctx, m.SenderID); err == nil {
			sender = *p
		}
		views = append(views, assemble.MessageView{Message: m, Sender: sender})
	}
	return &views
}

// storeMessageViews mirrors a fetched thread into the local cache.
func storeMessageViews(ctx context.Context, app *App, views []assemble.MessageView) {
	msgs := make([]model.Message, 0, len(views))
	profiles := make([]model.Profile, 0, len(views))
	seen := make(map[string]bool)
	for _, v := range views {
		msgs = append(msgs, v.Message)
		if v.Sender.FullName != model.UnknownUserName && !seen[v.Sender.ID] {
			seen[v.Sender.ID] = true
			profiles = append(profiles, v.Sender)
		}
	}
	if err := app.Cache.UpsertMessages(ctx, msgs); err != nil {
		slog.Warn("caching messages failed", "error", err)
	}
	if err := app.Cache.UpsertProfiles(ctx, profiles); err != nil {
		slog.Warn("caching profiles failed", "error", err)
	}
}

func newMessagesSendCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <text>",
		Short: "Send a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			sess, err := app.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			m := query.NewMutation(func(ctx context.Context) (model.Message, error) {
				return app.Actions.SendMessage(ctx, args[0], sess.UserID, args[1])
			}, query.MutationOptions[model.Message]{})

			msg, err := m.Do(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", msg.ID)
			return nil
		},
	}
}

func newMessagesStartCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <member-id>...",
		Short: "Start a conversation with one or more members",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			sess, err := app.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			m := query.NewMutation(func(ctx context.Context) (model.Conversation, error) {
				return app.Actions.StartConversation(ctx, sess.UserID, args...)
			}, query.MutationOptions[model.Conversation]{})

			conv, err := m.Do(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "conversation %s\n", conv.ID)
			return nil
		},
	}
}
