package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "botfleet",
		Short: "Run a fleet of Telegram join-request bots managed from one admin bot",
		// Errors are already logged through slog by the time they reach cobra.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSupervisor(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "./config.yaml", "Path to configuration file")

	cmd.AddCommand(newMigrateCmd(&configPath), newVersionCmd())
	return cmd
}
