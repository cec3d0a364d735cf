package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"umlexport/internal/storage"
	"umlexport/internal/utils"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	FrontendURL []string
	Database    DatabaseConfig
	Export      ExportConfig
	Mirror      storage.MirrorConfig
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	AdminUser     string
	AdminPassword string
}

// Enabled reports whether a diagram store is configured. Without one only
// inline exports are served.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type ExportConfig struct {
	WorkDir         string
	CompressTimeout time.Duration
	StreamTimeout   time.Duration
	Workers         int
	ModelCacheSize  int
	StrictTypes     bool
	FailOnAmbiguity bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}
	port = strings.TrimPrefix(port, ":")

	env := utils.FirstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")

	return &Config{
		Port:        ":" + port,
		Env:         env,
		LogLevel:    utils.FirstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info"),
		FrontendURL: splitList(os.Getenv("FRONTEND_URL")),
		Database: DatabaseConfig{
			Host:          strings.TrimSpace(os.Getenv("DB_HOST")),
			Port:          utils.FirstNonEmpty(strings.TrimSpace(os.Getenv("DB_PORT")), "5432"),
			User:          os.Getenv("DB_USERNAME"),
			Password:      os.Getenv("DB_PASSWORD"),
			Name:          os.Getenv("DB_DATABASE"),
			AdminUser:     os.Getenv("DB_ADMIN_USER"),
			AdminPassword: os.Getenv("DB_ADMIN_PASSWORD"),
		},
		Export: ExportConfig{
			WorkDir:         utils.FirstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_WORK_DIR")), filepath.Join(os.TempDir(), "umlexport")),
			CompressTimeout: envDuration("EXPORT_COMPRESS_TIMEOUT", 30*time.Second),
			StreamTimeout:   envDuration("EXPORT_STREAM_TIMEOUT", 60*time.Second),
			Workers:         envInt("EXPORT_WORKERS", 0),
			ModelCacheSize:  envInt("EXPORT_MODEL_CACHE_SIZE", 128),
			StrictTypes:     envBool("STRICT_TYPES", false),
			FailOnAmbiguity: envBool("FAIL_ON_AMBIGUITY", false),
		},
		Mirror: storage.MirrorConfig{
			Endpoint:  strings.TrimSpace(os.Getenv("ARCHIVE_MIRROR_ENDPOINT")),
			Region:    utils.FirstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_MIRROR_REGION")), "us-east-1"),
			AccessKey: strings.TrimSpace(os.Getenv("ARCHIVE_MIRROR_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("ARCHIVE_MIRROR_SECRET_KEY")),
			Bucket:    strings.TrimSpace(os.Getenv("ARCHIVE_MIRROR_BUCKET")),
			UseSSL:    envBool("ARCHIVE_MIRROR_USE_SSL", true),
		},
	}, nil
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
