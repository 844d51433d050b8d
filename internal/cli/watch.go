package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anle/alumnet/internal/assemble"
	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/query"
)

// NewWatchCommand creates the watch command: it subscribes to the change
// feed of one table and prints events until interrupted.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "watch <table>",
		Short: "Stream live changes to a table",
		Long: `Subscribe to the real-time change feed of one table and print each
insert, update and delete until interrupted.

Example:
  alumnet watch messages --filter conversation_id=eq.1f3a
  alumnet watch notifications`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			ctx := cmd.Context()

			// Background connectivity while the stream is open.
			app.Monitor.Start(ctx)
			defer app.Monitor.Stop()

			ch, err := app.Client.Subscribe(ctx, args[0], filter)
			if err != nil {
				return fmt.Errorf("subscribing to %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			printEvent := func(ev backend.ChangeEvent) {
				fmt.Fprintf(out, "%s %s %s\n", ev.Kind, ev.Table, string(ev.Record))
			}
			sub := query.Subscribe(ctx, ch, query.Handlers{
				OnInsert: printEvent,
				OnUpdate: printEvent,
				OnDelete: printEvent,
			})

			// Push events trigger a coalesced refetch of the view behind
			// the stream, so the printed state is the row set, not just
			// the deltas.
			if refetch := watchRefetcher(app, args[0], filter, out); refetch != nil {
				sub.BindRefetch(refetch)
			}

			fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", args[0])

			select {
			case <-ctx.Done():
				sub.Close()
				<-sub.Done()
			case <-sub.Done():
				fmt.Fprintln(out, "stream closed by server")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "server-side row filter (col=eq.value)")

	return cmd
}

// watchRefetcher returns the refetch to bind to the stream: watching one
// conversation's messages reprints the assembled thread on each coalesced
// event. Other tables have no thread view and get nil.
func watchRefetcher(app *App, table, filter string, out io.Writer) func(context.Context) {
	if table != backend.TableMessages {
		return nil
	}
	convID := filterEqValue(filter, "conversation_id")
	if convID == "" {
		return nil
	}

	q := query.New("watch-messages", func(ctx context.Context) ([]assemble.MessageView, error) {
		return app.Views.Messages(ctx, convID)
	}, query.Options[[]assemble.MessageView]{Retryer: app.Monitor})

	return func(ctx context.Context) {
		snap := q.Refetch(ctx)
		if snap.Err != "" {
			fmt.Fprintf(out, "refetch failed: %s\n", snap.Err)
			return
		}
		fmt.Fprintf(out, "-- thread (%d messages) --\n", len(snap.Data))
		printMessages(out, snap.Data)
	}
}

// filterEqValue extracts the value of a "col=eq.value" filter, or "" when
// the filter targets a different column or uses another operator.
func filterEqValue(filter, col string) string {
	prefix := col + "=eq."
	if strings.HasPrefix(filter, prefix) {
		return strings.TrimPrefix(filter, prefix)
	}
	return ""
}

// NewHealthCommand creates the health command: one probe cycle against the
// backend with the reconnection policy applied.
func NewHealthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			connected := app.Monitor.Ensure(cmd.Context())
			status := app.Monitor.Status()

			out := cmd.OutOrStdout()
			if connected {
				fmt.Fprintln(out, "connected")
				return nil
			}
			fmt.Fprintf(out, "disconnected after %d retries\n", status.RetryCount)
			return fmt.Errorf("backend unreachable")
		},
	}
}
