package cmd

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/profiles"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage consultant profiles in the local profile database",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create a consultant profile, or update one with --id",
	Long: `Create a consultant profile linked to an identity provider user id, or
update an existing row when --id is given.

Examples:
  sessionctl profile set --user-id 6f1c... --name "Ana Souza" --email ana@example.com
  sessionctl profile set --id 3 --user-id 6f1c... --name "Ana Souza" --inactive`,
	Args: cobra.NoArgs,
	RunE: runProfileSet,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show the active consultant profile for a user id",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSetCmd, profileShowCmd)

	profileSetCmd.Flags().Int64("id", 0, "profile id to update")
	profileSetCmd.Flags().String("user-id", "", "identity provider user id")
	profileSetCmd.Flags().String("name", "", "display name")
	profileSetCmd.Flags().String("email", "", "contact email")
	profileSetCmd.Flags().String("phone", "", "contact phone")
	profileSetCmd.Flags().Bool("inactive", false, "mark the profile inactive")
	_ = profileSetCmd.MarkFlagRequired("user-id")
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	repo, err := openProfiles(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	flags := cmd.Flags()
	p := &identity.ProfileRecord{Active: true}
	p.ID, _ = flags.GetInt64("id")
	p.PrincipalID, _ = flags.GetString("user-id")
	p.Name, _ = flags.GetString("name")
	p.Email, _ = flags.GetString("email")
	p.Phone, _ = flags.GetString("phone")
	if inactive, _ := flags.GetBool("inactive"); inactive {
		p.Active = false
	}

	if err := repo.Upsert(cmd.Context(), p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %d for %s\n", p.ID, p.PrincipalID)
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	repo, err := openProfiles(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	p, err := repo.FindActiveProfileByPrincipalID(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if p == nil {
		return errors.New("no active profile")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Email, p.Phone)
	return nil
}

func openProfiles(cmd *cobra.Command) (*profiles.SQLiteRepo, error) {
	repo, err := profiles.Open(cfg.GetProfileDatabasePath())
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(cmd.Context()); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}
