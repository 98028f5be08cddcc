package config

import (
	"errors"
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

	Redis    RedisConfig
	MinIO    MinIOConfig
	CORS     CORSConfig
	Log      LogConfig
	Schedule ScheduleConfig
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// MinIOConfig points at the bucket holding the full-timetable export.
type MinIOConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScheduleConfig governs the document sources and cache behaviour of the
// parsing core.
type ScheduleConfig struct {
	// BulletinURL is the public location of the daily substitution PDF.
	BulletinURL string
	// ArchiveURL is the HTTP fallback for the timetable export when MinIO
	// is not configured.
	ArchiveURL string
	// ArchiveObject is the object key of the export inside the MinIO bucket.
	ArchiveObject string
	// CutoffHour is the local hour after which a republished bulletin for
	// today is expected (the publish cutoff).
	CutoffHour int
	// FetchTimeout bounds a single document download.
	FetchTimeout time.Duration
	// WorkDir holds downloaded documents.
	WorkDir string
	// StorageDir holds the serialized parse artifacts when Redis is off.
	StorageDir string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.MinIO = MinIOConfig{
		Enabled:   v.GetBool("MINIO_ENABLED"),
		Endpoint:  v.GetString("MINIO_ENDPOINT"),
		AccessKey: v.GetString("MINIO_ACCESS_KEY"),
		SecretKey: v.GetString("MINIO_SECRET_KEY"),
		UseSSL:    v.GetBool("MINIO_USE_SSL"),
		Bucket:    v.GetString("MINIO_BUCKET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Schedule = ScheduleConfig{
		BulletinURL:   v.GetString("SCHEDULE_BULLETIN_URL"),
		ArchiveURL:    v.GetString("SCHEDULE_ARCHIVE_URL"),
		ArchiveObject: v.GetString("SCHEDULE_ARCHIVE_OBJECT"),
		CutoffHour:    v.GetInt("SCHEDULE_CUTOFF_HOUR"),
		FetchTimeout:  parseDuration(v.GetString("SCHEDULE_FETCH_TIMEOUT"), 30*time.Second),
		WorkDir:       v.GetString("SCHEDULE_WORK_DIR"),
		StorageDir:    v.GetString("SCHEDULE_STORAGE_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MINIO_ENABLED", false)
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_BUCKET", "timetables")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULE_BULLETIN_URL", "https://ttgt.org/images/pdf/zamena.pdf")
	v.SetDefault("SCHEDULE_ARCHIVE_URL", "")
	v.SetDefault("SCHEDULE_ARCHIVE_OBJECT", "schedule.zip")
	v.SetDefault("SCHEDULE_CUTOFF_HOUR", 15)
	v.SetDefault("SCHEDULE_FETCH_TIMEOUT", "30s")
	v.SetDefault("SCHEDULE_WORK_DIR", "./downloads")
	v.SetDefault("SCHEDULE_STORAGE_DIR", "./data")
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
