package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"daily-planner/internal/client"
	"daily-planner/internal/config"
	"daily-planner/internal/tui"
	"daily-planner/internal/view"
)

func addBoard(topLevel *cobra.Command, v *viper.Viper) {
	var startView string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "open the terminal board against a running API",
		Example: `
dailyplanner board --owner 1
dailyplanner board --api http://planner:8080 --owner 1 --view today
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if cfg.OwnerID == 0 {
				return errors.New("owner id is required: pass --owner or set OWNER_ID")
			}
			c := client.New(cfg.APIURL, cfg.OwnerID)
			return tui.Run(cmd.Context(), c, view.Parse(startView))
		},
	}
	cmd.Flags().String("api", "", "base URL of the task API (API_URL)")
	cmd.Flags().String("owner", "", "owner id sent with every request (OWNER_ID)")
	cmd.Flags().StringVar(&startView, "view", string(view.All), "initial view: all, today, week, nodate or done")
	_ = v.BindPFlag(config.KeyAPIURL, cmd.Flags().Lookup("api"))
	_ = v.BindPFlag(config.KeyOwnerID, cmd.Flags().Lookup("owner"))

	topLevel.AddCommand(cmd)
}
