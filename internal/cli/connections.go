package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anle/alumnet/internal/assemble"
	"github.com/anle/alumnet/internal/model"
	"github.com/anle/alumnet/internal/query"
)

// NewConnectionsCommand creates the connections command group.
func NewConnectionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Manage your connections",
	}

	cmd.AddCommand(newConnectionsListCommand(rootOpts))
	cmd.AddCommand(newConnectionsRequestCommand(rootOpts))
	cmd.AddCommand(newConnectionsRespondCommand(rootOpts, "accept", model.ConnectionAccepted))
	cmd.AddCommand(newConnectionsRespondCommand(rootOpts, "block", model.ConnectionBlocked))

	return cmd
}

func newConnectionsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending and accepted connections",
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

			q := query.New("connections", func(ctx context.Context) (assemble.ConnectionsView, error) {
				return app.Views.Connections(ctx, sess.UserID)
			}, query.Options[assemble.ConnectionsView]{Retryer: app.Monitor})

			snap := q.Fetch(cmd.Context())
			if snap.Err != "" {
				return fmt.Errorf("fetching connections: %s", snap.Err)
			}

			out := cmd.OutOrStdout()
			printEdges(out, "Incoming requests", snap.Data.IncomingPending)
			printEdges(out, "Outgoing requests", snap.Data.OutgoingPending)
			printEdges(out, "Connected", snap.Data.Accepted)
			return nil
		},
	}
}

func printEdges(out io.Writer, header string, edges []assemble.ConnectionEdge) {
	fmt.Fprintf(out, "%s (%d)\n", header, len(edges))
	for _, e := range edges {
		fmt.Fprintf(out, "  %s  %s  [%s]\n", e.Connection.ID, e.Counterpart.FullName, e.Counterpart.Headline)
	}
}

func newConnectionsRequestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "request <member-id>",
		Short: "Send a connection request",
		Args:  cobra.ExactArgs(1),
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

			m := query.NewMutation(func(ctx context.Context) (model.Connection, error) {
				return app.Actions.RequestConnection(ctx, sess.UserID, args[0])
			}, query.MutationOptions[model.Connection]{})

			edge, err := m.Do(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connection %s: %s\n", edge.ID, edge.Status)
			return nil
		},
	}
}

func newConnectionsRespondCommand(rootOpts *RootOptions, verb string, status model.ConnectionStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <connection-id>",
		Short: verb + " a connection request",
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

			m := query.NewMutation(func(ctx context.Context) (struct{}, error) {
				return struct{}{}, app.Actions.RespondConnection(ctx, args[0], status)
			}, query.MutationOptions[struct{}]{})

			if _, err := m.Do(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connection %s: %s\n", args[0], status)
			return nil
		},
	}
}
