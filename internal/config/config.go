package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string          `yaml:"discord_token"`
	GuildID       string          `yaml:"guild_id"`
	BotOwnerID    string          `yaml:"bot_owner_id"`
	MongoURI      string          `yaml:"mongo_uri"`
	MongoDatabase string          `yaml:"mongo_database"`
	LogLevel      string          `yaml:"log_level"`
	AppealURL     string          `yaml:"appeal_url"`
	Thresholds    Thresholds      `yaml:"thresholds"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
}

type Thresholds struct {
	JoinRate              int `yaml:"join_rate"`
	JoinWindowSeconds     int `yaml:"join_window_seconds"`
	SpamRate              int `yaml:"spam_rate"`
	SpamWindowSeconds     int `yaml:"spam_window_seconds"`
	OvertimeRate          int `yaml:"overtime_rate"`
	OvertimeWindowSeconds int `yaml:"overtime_window_seconds"`
	DetectionRate         int `yaml:"detection_rate"`
	DetectionWindow       int `yaml:"detection_window_seconds"`
	AlertCooldownSeconds  int `yaml:"alert_cooldown_seconds"`
	PingUserLimit         int `yaml:"ping_user_limit"`
	PingRoleLimit         int `yaml:"ping_role_limit"`
}

type SchedulerConfig struct {
	PollSeconds  int `yaml:"poll_seconds"`
	GraceMinutes int `yaml:"grace_minutes"`
}

func DefaultConfig() Config {
	return Config{
		MongoURI:      "mongodb://127.0.0.1:27017",
		MongoDatabase: "vigil",
		LogLevel:      "info",
		Thresholds: Thresholds{
			JoinRate:              10,
			JoinWindowSeconds:     8,
			SpamRate:              7,
			SpamWindowSeconds:     10,
			OvertimeRate:          4,
			OvertimeWindowSeconds: 2700,
			DetectionRate:         4,
			DetectionWindow:       15,
			AlertCooldownSeconds:  600,
			PingUserLimit:         4,
			PingRoleLimit:         2,
		},
		Scheduler: SchedulerConfig{
			PollSeconds:  10,
			GraceMinutes: 60,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.GuildID == "" {
		return Config{}, errors.New("GUILD_ID is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.GuildID = envString("GUILD_ID", cfg.GuildID)
	cfg.BotOwnerID = envString("BOT_OWNER_ID", cfg.BotOwnerID)
	cfg.MongoURI = envString("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = envString("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.AppealURL = envString("APPEAL_URL", cfg.AppealURL)
	cfg.Thresholds.JoinRate = envInt("JOIN_RATE", cfg.Thresholds.JoinRate)
	cfg.Thresholds.JoinWindowSeconds = envInt("JOIN_WINDOW_SECONDS", cfg.Thresholds.JoinWindowSeconds)
	cfg.Thresholds.SpamRate = envInt("SPAM_RATE", cfg.Thresholds.SpamRate)
	cfg.Thresholds.SpamWindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.Thresholds.SpamWindowSeconds)
	cfg.Thresholds.OvertimeRate = envInt("OVERTIME_RATE", cfg.Thresholds.OvertimeRate)
	cfg.Thresholds.OvertimeWindowSeconds = envInt("OVERTIME_WINDOW_SECONDS", cfg.Thresholds.OvertimeWindowSeconds)
	cfg.Thresholds.DetectionRate = envInt("DETECTION_RATE", cfg.Thresholds.DetectionRate)
	cfg.Thresholds.DetectionWindow = envInt("DETECTION_WINDOW_SECONDS", cfg.Thresholds.DetectionWindow)
	cfg.Thresholds.AlertCooldownSeconds = envInt("ALERT_COOLDOWN_SECONDS", cfg.Thresholds.AlertCooldownSeconds)
	cfg.Scheduler.PollSeconds = envInt("SCHEDULER_POLL_SECONDS", cfg.Scheduler.PollSeconds)
	cfg.Scheduler.GraceMinutes = envInt("SCHEDULER_GRACE_MINUTES", cfg.Scheduler.GraceMinutes)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
