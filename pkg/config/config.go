package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig carries generator defaults operators can change without a rebuild.
type SchedulerConfig struct {
	Enabled          bool
	ProposalTTL      time.Duration
	SweepCron        string
	SummaryCacheTTL  time.Duration
	TheoryMinutes    int
	LabMinutes       int
	ProjectMinutes   int
	DayOffDays       []string
	EveningOffDays   []string
	DefaultDayBlocks []string
	DefaultEvening   []string

	ExportTimezone      string
	ExportCalendarWeeks int
	ExportCSVBOM        bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:          v.GetBool("ENABLE_SCHEDULER"),
		ProposalTTL:      parseDuration(v.GetString("SCHEDULER_PROPOSAL_TTL"), 72*time.Hour),
		SweepCron:        v.GetString("SCHEDULER_SWEEP_CRON"),
		SummaryCacheTTL:  parseDuration(v.GetString("SCHEDULER_SUMMARY_CACHE_TTL"), time.Minute),
		TheoryMinutes:    positiveOr(v.GetInt("SCHEDULER_THEORY_MINUTES"), 75),
		LabMinutes:       positiveOr(v.GetInt("SCHEDULER_LAB_MINUTES"), 100),
		ProjectMinutes:   positiveOr(v.GetInt("SCHEDULER_PROJECT_MINUTES"), 100),
		DayOffDays:       splitAndTrim(v.GetString("SCHEDULER_DAY_OFF_DAYS")),
		EveningOffDays:   splitAndTrim(v.GetString("SCHEDULER_EVENING_OFF_DAYS")),
		DefaultDayBlocks: splitAndTrim(v.GetString("SCHEDULER_DAY_BLOCKS")),
		DefaultEvening:   splitAndTrim(v.GetString("SCHEDULER_EVENING_BLOCKS")),

		ExportTimezone:      v.GetString("SCHEDULER_EXPORT_TIMEZONE"),
		ExportCalendarWeeks: positiveOr(v.GetInt("SCHEDULER_EXPORT_CALENDAR_WEEKS"), 16),
		ExportCSVBOM:        v.GetBool("SCHEDULER_EXPORT_CSV_BOM"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "class_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_PROPOSAL_TTL", "72h")
	v.SetDefault("SCHEDULER_SWEEP_CRON", "*/15 * * * *")
	v.SetDefault("SCHEDULER_SUMMARY_CACHE_TTL", "1m")
	v.SetDefault("SCHEDULER_THEORY_MINUTES", 75)
	v.SetDefault("SCHEDULER_LAB_MINUTES", 100)
	v.SetDefault("SCHEDULER_PROJECT_MINUTES", 100)
	v.SetDefault("SCHEDULER_DAY_OFF_DAYS", "Friday")
	v.SetDefault("SCHEDULER_EVENING_OFF_DAYS", "Friday")
	v.SetDefault("SCHEDULER_DAY_BLOCKS", "08:30-13:00,14:00-17:00")
	v.SetDefault("SCHEDULER_EVENING_BLOCKS", "18:00-21:40")
	v.SetDefault("SCHEDULER_EXPORT_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_EXPORT_CALENDAR_WEEKS", 16)
	v.SetDefault("SCHEDULER_EXPORT_CSV_BOM", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
