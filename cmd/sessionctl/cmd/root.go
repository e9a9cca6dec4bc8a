// Package cmd contains the sessionctl commands.
package cmd

import (
	"os"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	cfg     config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "Sign in to the identity provider and inspect the local session",
	Long: `sessionctl manages the session cached in SESSION_FILE.

Example usage:
  sessionctl login -e ana@example.com   # Sign in, prompting for the password on stdin
  sessionctl whoami                     # Show the current principal and consultant profile
  sessionctl logout                     # Revoke the session and clear local tokens
  sessionctl watch                      # Print every session transition until interrupted`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initConfig()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func initConfig() {
	cfg = config.New()

	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	logger.Debug().
		Str("env", cfg.GetEnv()).
		Str("issuer", cfg.GetIssuerURL()).
		Str("session_file", cfg.GetSessionFile()).
		Msg("configuration loaded")
}
