package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/anle/alumnet/internal/assemble"
	"github.com/anle/alumnet/internal/model"
	"github.com/anle/alumnet/internal/query"
)

// NewAnnouncementsCommand creates the announcements command group.
func NewAnnouncementsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "announcements",
		Short: "Read network-wide announcements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			fallback := cachedAnnouncements(cmd.Context(), app)

			q := query.New("announcements", func(ctx context.Context) ([]assemble.AnnouncementView, error) {
				return app.Views.Announcements(ctx, limit)
			}, query.Options[[]assemble.AnnouncementView]{
				Retryer:  app.Monitor,
				Fallback: fallback,
			})

			snap := q.Fetch(cmd.Context())
			if snap.Err != "" && !snap.FromFallback {
				return fmt.Errorf("fetching announcements: %s", snap.Err)
			}

			out := cmd.OutOrStdout()
			if snap.FromFallback {
				fmt.Fprintln(out, "(offline: showing cached copy)")
			} else {
				storeAnnouncements(cmd.Context(), app, snap.Data)
			}

			for _, post := range snap.Data {
				marker := " "
				if post.Pinned {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s - %s (%s)\n", marker, post.Title,
					post.Author.FullName, post.CreatedAt.Local().Format("2006-01-02"))
				if post.Body != "" {
					fmt.Fprintf(out, "  %s\n", post.Body)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum posts")
	cmd.AddCommand(newAnnouncementsPostCommand(rootOpts))

	return cmd
}

func cachedAnnouncements(ctx context.Context, app *App) *[]assemble.AnnouncementView {
	posts, err := app.Cache.GetAnnouncements(ctx)
	if err != nil || len(posts) == 0 {
		return nil
	}
	views := make([]assemble.AnnouncementView, 0, len(posts))
	for _, post := range posts {
		author := model.PlaceholderProfile(post.AuthorID)
		if p, err := app.Cache.GetProfileByID(ctx, post.AuthorID); err == nil {
			author = *p
		}
		views = append(views, assemble.AnnouncementView{Announcement: post, Author: author})
	}
	return &views
}

func storeAnnouncements(ctx context.Context, app *App, views []assemble.AnnouncementView) {
	posts := make([]model.Announcement, 0, len(views))
	for _, v := range views {
		posts = append(posts, v.Announcement)
	}
	if err := app.Cache.UpsertAnnouncements(ctx, posts); err != nil {
		slog.Warn("caching announcements failed", "error", err)
	}
}

func newAnnouncementsPostCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		body   string
		pinned bool
	)

	cmd := &cobra.Command{
		Use:   "post <title>",
		Short: "Publish an announcement (admins and moderators)",
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

			m := query.NewMutation(func(ctx context.Context) (model.Announcement, error) {
				return app.Actions.PostAnnouncement(ctx, sess.UserID, args[0], body, pinned)
			}, query.MutationOptions[model.Announcement]{})

			post, err := m.Do(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", post.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "announcement body")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "pin to the top of the feed")

	return cmd
}

// NewJobsCommand creates the jobs command.
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Browse the job board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			q := query.New("jobs", func(ctx context.Context) ([]model.Job, error) {
				return app.Views.Jobs(ctx, limit)
			}, query.Options[[]model.Job]{Retryer: app.Monitor})

			snap := q.Fetch(cmd.Context())
			if snap.Err != "" {
				return fmt.Errorf("fetching jobs: %s", snap.Err)
			}

			out := cmd.OutOrStdout()
			for _, job := range snap.Data {
				fmt.Fprintf(out, "%s - %s, %s\n", job.Title, job.Company, job.Location)
				if job.Link != "" {
					fmt.Fprintf(out, "  %s\n", job.Link)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum postings")

	return cmd
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Browse upcoming events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			q := query.New("events", func(ctx context.Context) ([]model.Event, error) {
				return app.Views.Events(ctx, limit)
			}, query.Options[[]model.Event]{Retryer: app.Monitor})

			snap := q.Fetch(cmd.Context())
			if snap.Err != "" {
				return fmt.Errorf("fetching events: %s", snap.Err)
			}

			out := cmd.OutOrStdout()
			for _, ev := range snap.Data {
				fmt.Fprintf(out, "%s - %s, %s\n", ev.StartsAt.Local().Format("2006-01-02 15:04"), ev.Title, ev.Location)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum events")

	return cmd
}

// NewNotificationsCommand creates the notifications command.
func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		limit    int
		markRead string
	)

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications, unread first",
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

			if markRead != "" {
				m := query.NewMutation(func(ctx context.Context) (struct{}, error) {
					return struct{}{}, app.Actions.MarkNotificationRead(ctx, markRead)
				}, query.MutationOptions[struct{}]{})
				if _, err := m.Do(cmd.Context()); err != nil {
					return err
				}
				// Keep the mirror in step so offline reads agree.
				if err := app.Cache.MarkNotificationRead(cmd.Context(), markRead); err != nil {
					slog.Warn("updating cached notification failed", "error", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "marked %s read\n", markRead)
				return nil
			}

			// Offline fallback: unread notifications from the mirror.
			var fallback *[]model.Notification
			if cached, err := app.Cache.GetUnreadNotifications(cmd.Context(), sess.UserID); err == nil && len(cached) > 0 {
				fallback = &cached
			}

			q := query.New("notifications", func(ctx context.Context) ([]model.Notification, error) {
				return app.Views.Notifications(ctx, sess.UserID, limit)
			}, query.Options[[]model.Notification]{
				Retryer:  app.Monitor,
				Fallback: fallback,
			})

			snap := q.Fetch(cmd.Context())
			if snap.Err != "" && !snap.FromFallback {
				return fmt.Errorf("fetching notifications: %s", snap.Err)
			}

			if snap.FromFallback {
				fmt.Fprintln(cmd.OutOrStdout(), "(offline: showing cached copy)")
			} else if err := app.Cache.UpsertNotifications(cmd.Context(), snap.Data); err != nil {
				slog.Warn("caching notifications failed", "error", err)
			}

			out := cmd.OutOrStdout()
			for _, n := range snap.Data {
				marker := " "
				if !n.Read {
					marker = "•"
				}
				fmt.Fprintf(out, "%s %s  %s (%s)\n", marker, n.ID, n.Message, n.Type)
			}
			if len(snap.Data) == 0 {
				fmt.Fprintln(out, "no notifications")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum notifications")
	cmd.Flags().StringVar(&markRead, "mark-read", "", "mark the given notification id read and exit")

	return cmd
}
