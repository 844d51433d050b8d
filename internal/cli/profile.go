package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
	"github.com/anle/alumnet/internal/query"
)

// NewProfileCommand creates the profile command group.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your profile",
	}

	cmd.AddCommand(newProfileUpdateCommand(rootOpts))
	cmd.AddCommand(newProfileAvatarCommand(rootOpts))

	return cmd
}

func newProfileUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name     string
		headline string
		bio      string
		gradYear int
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
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

			patch := map[string]any{}
			if cmd.Flags().Changed("name") {
				patch["full_name"] = name
			}
			if cmd.Flags().Changed("headline") {
				patch["headline"] = headline
			}
			if cmd.Flags().Changed("bio") {
				patch["bio"] = bio
			}
			if cmd.Flags().Changed("year") {
				patch["grad_year"] = gradYear
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to update; pass at least one of --name, --headline, --bio, --year")
			}

			m := query.NewMutation(func(ctx context.Context) (model.Profile, error) {
				return app.Actions.UpdateProfile(ctx, sess.UserID, patch)
			}, query.MutationOptions[model.Profile]{})

			updated, err := m.Do(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated profile for %s\n", updated.FullName)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&headline, "headline", "", "one-line tagline")
	cmd.Flags().StringVar(&bio, "bio", "", "profile text")
	cmd.Flags().IntVar(&gradYear, "year", 0, "graduation year")

	return cmd
}

func newProfileAvatarCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <image-file>",
		Short: "Upload an avatar image",
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

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening image: %w", err)
			}
			defer f.Close()

			ext := filepath.Ext(args[0])
			contentType := mime.TypeByExtension(ext)
			if contentType == "" {
				contentType = "application/octet-stream"
			}

			objectPath := sess.UserID + "/avatar" + ext
			path, err := app.Client.Upload(cmd.Context(), backend.AvatarBucket, objectPath, f, contentType)
			if err != nil {
				return fmt.Errorf("uploading avatar: %w", err)
			}

			m := query.NewMutation(func(ctx context.Context) (model.Profile, error) {
				return app.Actions.UpdateProfile(ctx, sess.UserID, map[string]any{"avatar_path": path})
			}, query.MutationOptions[model.Profile]{})
			if _, err := m.Do(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "avatar at %s\n", app.Client.PublicURL(backend.AvatarBucket, objectPath))
			return nil
		},
	}
}
