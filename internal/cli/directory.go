package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anle/alumnet/internal/assemble"
	"github.com/anle/alumnet/internal/model"
	"github.com/anle/alumnet/internal/query"
)

// NewDirectoryCommand creates the directory command.
func NewDirectoryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		role  string
		year  int
		text  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Browse the member directory",
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

			filter := assemble.DirectoryFilter{
				Role:     model.Role(role),
				GradYear: year,
				Query:    text,
				Limit:    limit,
			}
			q := query.New("directory", func(ctx context.Context) ([]assemble.DirectoryEntry, error) {
				return app.Views.Directory(ctx, sess.UserID, filter)
			}, query.Options[[]assemble.DirectoryEntry]{Retryer: app.Monitor})

			snap := q.Fetch(cmd.Context())
			if snap.Err != "" {
				return fmt.Errorf("fetching directory: %s", snap.Err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tROLE\tYEAR\tHEADLINE\tCONNECTION")
			for _, entry := range snap.Data {
				status := string(entry.Status)
				if status == "" {
					status = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					entry.Profile.FullName, entry.Profile.Role,
					yearLabel(entry.Profile.GradYear), entry.Profile.Headline, status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "filter by role (student|alumni|admin|moderator)")
	cmd.Flags().IntVar(&year, "year", 0, "filter by graduation year")
	cmd.Flags().StringVar(&text, "query", "", "match name or headline")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")

	return cmd
}

func yearLabel(year int) string {
	if year == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", year)
}
