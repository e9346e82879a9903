package main

import (
	"os"

	envload "github.com/netaudit/AuditAgent/internal"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "auditagent",
	Short: "Concurrent SSH audit for Cisco network devices",
	Long: `auditagent connects to every device in an inventory over SSH, collects
version, interface, and neighbor state, and correlates it into a timestamped
CSV report. Runs are mirrored into a local SQLite history database.`,
}

var rootUsername string

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.PersistentFlags().StringVar(&rootUsername, "username", "", "SSH username, overrides AUDIT_SSH_USERNAME")
	rootCmd.AddCommand(
		newRunCmd(),
		newDevicesCmd(),
	)
	_ = envload.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("auditagent command failed")
	}
}
