package cmd

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session and remove cached tokens",
	Long: `Sign out remotely and clear every cached identity provider key.

Local tokens are removed even when the provider cannot be reached; the remote
call is abandoned after SIGN_OUT_TIMEOUT.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("identity provider unavailable, clearing local session only")
		return clearLocalSession(cmd, err)
	}
	defer a.Close()

	if st := a.start(cmd.Context()); !st.Authenticated() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
	}
	a.manager.SignOut(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

// clearLocalSession removes cached identity provider keys without a backend.
// cause is returned when the session file cannot be opened either.
func clearLocalSession(cmd *cobra.Command, cause error) error {
	store, err := openSessionStore(cfg, logger)
	if err != nil {
		return errors.Join(cause, err)
	}
	removed := storage.Purge(store, storageMarkers(cfg), logger)
	logger.Info().Int("removed", removed).Msg("local session cleared")
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}
