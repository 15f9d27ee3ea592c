package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyTelegramToken  = "telegram_token"
	KeyDatabaseURL    = "database_url"
	KeyReportInterval = "report_interval_hours"
	KeyReportTime     = "report_time"
	KeyHTTPAddr       = "http_addr"
	KeyTimezone       = "timezone"
	KeyAPIURL         = "api_url"
	KeyOwnerID        = "owner_id"
)

const defaultReportInterval = 5 * time.Hour

// Config keeps runtime settings for the server, the bot and the board.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	ReportInterval time.Duration
	// ReportTime is a daily HH:MM report time; when set it replaces the interval.
	ReportTime string
	HTTPAddr   string
	Location   *time.Location
	APIURL     string
	OwnerID    uint
}

// BotEnabled reports whether a Telegram token was configured.
func (c Config) BotEnabled() bool { return c.TelegramToken != "" }

// New returns a viper instance wired to the environment and the optional
// .dailyplanner.yaml file. Callers may bind flags on it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDatabaseURL, "daily_planner.db")
	v.SetDefault(KeyReportInterval, 5)
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyAPIURL, "http://localhost:8080")

	v.SetConfigName(".dailyplanner") // .yaml is implicit
	v.SetConfigType("yaml")
	if override := os.Getenv("DAILYPLANNER_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	for _, key := range []string{KeyTelegramToken, KeyDatabaseURL, KeyReportInterval, KeyReportTime, KeyHTTPAddr, KeyTimezone, KeyAPIURL, KeyOwnerID} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
	return v
}

// Load reads configuration from v with sane defaults. A missing config file is fine.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		TelegramToken:  strings.TrimSpace(v.GetString(KeyTelegramToken)),
		DatabaseURL:    strings.TrimSpace(v.GetString(KeyDatabaseURL)),
		ReportInterval: parseInterval(strings.TrimSpace(v.GetString(KeyReportInterval))),
		ReportTime:     strings.TrimSpace(v.GetString(KeyReportTime)),
		HTTPAddr:       strings.TrimSpace(v.GetString(KeyHTTPAddr)),
		APIURL:         strings.TrimSpace(v.GetString(KeyAPIURL)),
		Location:       time.Local,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_planner.db"
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = defaultReportInterval
	}

	if tz := strings.TrimSpace(v.GetString(KeyTimezone)); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	if raw := strings.TrimSpace(v.GetString(KeyOwnerID)); raw != "" {
		var owner uint
		if _, err := fmt.Sscanf(raw, "%d", &owner); err != nil || owner == 0 {
			return cfg, fmt.Errorf("invalid OWNER_ID %q", raw)
		}
		cfg.OwnerID = owner
	}

	return cfg, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
