package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"daily-planner/internal/config"
	"daily-planner/internal/repository"
)

func addUser(topLevel *cobra.Command, v *viper.Viper) {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "manage task owners",
	}

	var (
		telegramID int64
		name       string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "register an owner and print its id",
		Example: `
dailyplanner user add --telegram-id 123456 --name Anna
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if telegramID == 0 {
				return fmt.Errorf("--telegram-id is required")
			}
			users, closeDB, err := openUsers(v)
			if err != nil {
				return err
			}
			defer closeDB()
			user, err := users.UpsertFromTelegram(cmd.Context(), telegramID, name, "", "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", user.ID)
			return nil
		},
	}
	add.Flags().Int64Var(&telegramID, "telegram-id", 0, "telegram user id of the owner")
	add.Flags().StringVar(&name, "name", "", "display name")

	list := &cobra.Command{
		Use:   "list",
		Short: "list registered owners",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, closeDB, err := openUsers(v)
			if err != nil {
				return err
			}
			defer closeDB()
			all, err := users.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\t@%s\n", u.ID, u.TelegramID, u.FirstName, u.Username)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	topLevel.AddCommand(cmd)
}

func openUsers(v *viper.Viper) (*repository.UserRepository, func(), error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return repository.NewUserRepository(db), closeDB, nil
}
