package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"daily-planner/internal/api"
	"daily-planner/internal/bot"
	"daily-planner/internal/config"
	"daily-planner/internal/repository"
	"daily-planner/internal/service"
)

func addServe(topLevel *cobra.Command, v *viper.Viper) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API, the Telegram bot and the report scheduler",
		Example: `
TELEGRAM_TOKEN=... dailyplanner serve --addr :8080
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address (HTTP_ADDR)")
	cmd.Flags().String("report-time", "", "daily report time HH:MM, replaces the interval (REPORT_TIME)")
	_ = v.BindPFlag(config.KeyHTTPAddr, cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag(config.KeyReportTime, cmd.Flags().Lookup("report-time"))

	topLevel.AddCommand(cmd)
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	taskSvc := service.NewTaskService(taskRepo, cfg.Location)
	reminderSvc := service.NewReminderService(taskRepo, cfg.Location)

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(taskSvc, userRepo)

	// Everything that can fail is set up before the API starts serving.
	var telegramBot *bot.Bot
	var scheduler *service.SchedulerService
	if cfg.BotEnabled() {
		scheduler = service.NewSchedulerService(cfg.Location)
		telegramBot, err = bot.New(cfg.TelegramToken, userRepo, taskSvc, reminderSvc, scheduler, &cfg)
		if err != nil {
			return err
		}
		if err := telegramBot.ScheduleReports(ctx); err != nil {
			return err
		}
	} else {
		log.Println("[info] TELEGRAM_TOKEN is not set, running without the bot")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, cfg.HTTPAddr)
	})

	if telegramBot != nil {
		scheduler.Start()
		defer scheduler.Stop()

		g.Go(func() error {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	log.Println("Daily planner started.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("Shutdown complete.")
	return nil
}
