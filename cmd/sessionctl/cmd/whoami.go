package cmd

import (
	"fmt"
	"io"

	"github.com/jrsteele09/go-auth-session/session"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in principal",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)

	whoamiCmd.Flags().Bool("refresh", false, "refetch the session and profile from the provider")
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	a.start(cmd.Context())

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		a.manager.RefreshUserData(cmd.Context())
	}
	printState(cmd.OutOrStdout(), a.manager.State())
	return nil
}

func printState(w io.Writer, st session.AuthState) {
	if !st.Authenticated() {
		fmt.Fprintf(w, "Status: %s\n", st.Status)
		return
	}

	p := st.Principal
	fmt.Fprintf(w, "Status:  %s\n", st.Status)
	fmt.Fprintf(w, "User:    %s\n", p.ID)
	fmt.Fprintf(w, "Email:   %s\n", p.Email)
	if p.Role != "" {
		fmt.Fprintf(w, "Role:    %s\n", p.Role)
	}
	if st.Session != nil && !st.Session.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Expires: %s\n", st.Session.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	if prof := st.Profile; prof != nil {
		fmt.Fprintf(w, "Profile: %s <%s> %s\n", prof.Name, prof.Email, prof.Phone)
	}
}
