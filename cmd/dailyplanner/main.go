package main

import (
	"log"

	"github.com/spf13/cobra"

	"daily-planner/internal/config"
)

func newRootCommand() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:           "dailyplanner",
		Short:         "Ordered daily task list with a Telegram bot, an HTTP API and a terminal board.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("db", "", "sqlite database path (DATABASE_URL)")
	cmd.PersistentFlags().String("timezone", "", "IANA time zone used for \"today\" (TIMEZONE)")
	_ = v.BindPFlag(config.KeyDatabaseURL, cmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag(config.KeyTimezone, cmd.PersistentFlags().Lookup("timezone"))

	addServe(cmd, v)
	addBoard(cmd, v)
	addUser(cmd, v)
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("error during command execution: %v", err)
	}
}
