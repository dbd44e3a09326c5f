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

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Canvas   CanvasConfig
	Caption  CaptionConfig
	Images   ImageConfig
	Scan     ScanConfig
	Cache    CacheConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CanvasConfig identifies the LMS instance and the API credentials used for
// course content reads, edits and file downloads.
type CanvasConfig struct {
	Domain      string
	APIToken    string
	PageSize    int
	HTTPTimeout time.Duration
}

// CaptionConfig governs the vision model used for alt text generation.
type CaptionConfig struct {
	APIKey      string
	Model       string
	Prompt      string
	Temperature float64
	Timeout     time.Duration
}

// ImageConfig bounds the payloads sent to the captioning service.
type ImageConfig struct {
	MaxDimension int
	JPEGQuality  int
	Concurrency  int
}

// ScanConfig tunes the background scan queue.
type ScanConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// CacheConfig toggles read caching for scan status and content queries.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
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

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Canvas = CanvasConfig{
		Domain:      v.GetString("CANVAS_DOMAIN"),
		APIToken:    v.GetString("CANVAS_API_TOKEN"),
		PageSize:    v.GetInt("CANVAS_PAGE_SIZE"),
		HTTPTimeout: parseDuration(v.GetString("CANVAS_HTTP_TIMEOUT"), 30*time.Second),
	}

	cfg.Caption = CaptionConfig{
		APIKey:      v.GetString("CAPTION_API_KEY"),
		Model:       v.GetString("CAPTION_MODEL"),
		Prompt:      v.GetString("CAPTION_PROMPT"),
		Temperature: v.GetFloat64("CAPTION_TEMPERATURE"),
		Timeout:     parseDuration(v.GetString("CAPTION_TIMEOUT"), 60*time.Second),
	}

	cfg.Images = ImageConfig{
		MaxDimension: v.GetInt("IMAGE_MAX_DIMENSION"),
		JPEGQuality:  v.GetInt("IMAGE_JPEG_QUALITY"),
		Concurrency:  v.GetInt("IMAGE_PROCESSING_CONCURRENCY"),
	}

	cfg.Scan = ScanConfig{
		Workers:    v.GetInt("SCAN_WORKERS"),
		BufferSize: v.GetInt("SCAN_BUFFER_SIZE"),
		MaxRetries: v.GetInt("SCAN_MAX_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 30*time.Second),
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
	v.SetDefault("DB_NAME", "canvas_alt_text")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CANVAS_DOMAIN", "canvas.example.edu")
	v.SetDefault("CANVAS_API_TOKEN", "")
	v.SetDefault("CANVAS_PAGE_SIZE", 100)
	v.SetDefault("CANVAS_HTTP_TIMEOUT", "30s")

	v.SetDefault("CAPTION_API_KEY", "")
	v.SetDefault("CAPTION_MODEL", "gemini-1.5-flash")
	v.SetDefault("CAPTION_PROMPT",
		"Generate concise and descriptive alt text for this image. "+
			"The description should be suitable for a student with a vision impairment. "+
			"Do not include phrases like 'This is an image of...'. "+
			"Provide only one concise option with no further explanation.")
	v.SetDefault("CAPTION_TEMPERATURE", 0.0)
	v.SetDefault("CAPTION_TIMEOUT", "60s")

	v.SetDefault("IMAGE_MAX_DIMENSION", 1024)
	v.SetDefault("IMAGE_JPEG_QUALITY", 85)
	v.SetDefault("IMAGE_PROCESSING_CONCURRENCY", 10)

	v.SetDefault("SCAN_WORKERS", 2)
	v.SetDefault("SCAN_BUFFER_SIZE", 16)
	v.SetDefault("SCAN_MAX_RETRIES", 1)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "30s")
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
