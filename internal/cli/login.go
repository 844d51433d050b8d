package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimSpace(line)
			}

			sess, err := app.Sessions.SignIn(cmd.Context(), args[0], password)
			if err != nil {
				return fmt.Errorf("sign-in failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out everywhere and wipe local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			// CompleteLogout recovers the stored session itself and
			// tolerates a corrupt or absent one; local state is wiped
			// no matter what.
			app.Sessions.CompleteLogout(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), "Signed out; local data wiped")
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
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

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", sess.Email, sess.UserID)
			if !sess.ExpiresAt.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "session expires %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
