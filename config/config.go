package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisSyncDB   int    `mapstructure:"REDIS_SYNC_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// All date/time arithmetic runs in this zone regardless of server locale.
	OperatingTZ string `mapstructure:"OPERATING_TZ"`

	// Availability window settings.
	WindowDays      int `mapstructure:"WINDOW_DAYS"`
	SlotDurationMin int `mapstructure:"SLOT_DURATION_MIN"`

	// External calendar sync settings.
	SyncIntervalMin int    `mapstructure:"SYNC_INTERVAL_MIN"`
	SyncTimeoutSec  int    `mapstructure:"SYNC_TIMEOUT_SEC"`
	GoogleCalCreds  string `mapstructure:"GOOGLE_CALENDAR_CREDENTIALS"`

	// Booking policy settings.
	RescheduleMax    int `mapstructure:"RESCHEDULE_MAX"`
	ShortNoticeHours int `mapstructure:"SHORT_NOTICE_HOURS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_SYNC_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("OPERATING_TZ", "Asia/Kolkata")
	viper.SetDefault("WINDOW_DAYS", 21)
	viper.SetDefault("SLOT_DURATION_MIN", 60)
	viper.SetDefault("SYNC_INTERVAL_MIN", 15)
	viper.SetDefault("SYNC_TIMEOUT_SEC", 30)
	viper.SetDefault("GOOGLE_CALENDAR_CREDENTIALS", "")
	viper.SetDefault("RESCHEDULE_MAX", 3)
	viper.SetDefault("SHORT_NOTICE_HOURS", 24)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
