package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration read from the environment
type Config struct {
	Port         string
	PublicOrigin string
	DataDir      string
	LogLevel     slog.Level

	// Metadata store
	MetadataBackend string // gorm | dynamodb
	DBDriver        string // sqlite | postgres
	DBDSN           string
	DynamoTable     string
	DynamoEndpoint  string
	CacheSize       int
	CacheTTL        time.Duration

	// Object store
	StorageBackend  string // local | s3
	S3Endpoint      string
	S3Bucket        string
	S3Region        string
	S3AccessKeyID   string
	S3SecretKey     string
	S3UsePathStyle  bool
	S3PublicBaseURL string
	S3PresignTTL    time.Duration

	// Signed URLs for the local backend. An empty key means one is generated
	// at startup, so links do not survive a restart.
	MediaSigningKey string
	MediaURLTTL     time.Duration

	// Uploads and access
	MaxUploadBytes   int64
	AllowedMIME      []string
	PasswordScheme   string
	BlobTimeout      time.Duration
	MetadataTimeout  time.Duration
	ProgressInterval time.Duration
	APIKey           string
}

// GetEnv returns env var or def when empty
func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads configuration from environment with defaults
func Load() (Config, error) {
	var errs []error

	dataDir := GetEnv("DATA_DIR", "./data")
	cfg := Config{
		Port:         GetEnv("PORT", "8080"),
		PublicOrigin: strings.TrimRight(GetEnv("PUBLIC_ORIGIN", "http://localhost:8080"), "/"),
		DataDir:      dataDir,

		MetadataBackend: strings.ToLower(GetEnv("METADATA_BACKEND", "gorm")),
		DBDriver:        strings.ToLower(GetEnv("DB_DRIVER", "sqlite")),
		DBDSN:           GetEnv("DB_DSN", dataDir+"/videolink.db"),
		DynamoTable:     GetEnv("DYNAMODB_TABLE", "videos"),
		DynamoEndpoint:  os.Getenv("DYNAMODB_ENDPOINT"),

		StorageBackend:  strings.ToLower(GetEnv("STORAGE_BACKEND", "local")),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        GetEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:   os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:     os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		MediaSigningKey: os.Getenv("MEDIA_SIGNING_KEY"),

		AllowedMIME:    splitList(os.Getenv("ALLOWED_MIME")),
		PasswordScheme: strings.ToLower(GetEnv("PASSWORD_SCHEME", "sha256")),
		APIKey:         os.Getenv("API_KEY"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(GetEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	cfg.S3UsePathStyle = parseBool("S3_USE_PATH_STYLE", false, &errs)
	cfg.CacheSize = parseInt("CACHE_SIZE", 1024, &errs)
	cfg.MaxUploadBytes = int64(parseInt("MAX_UPLOAD_BYTES", 500<<20, &errs))
	cfg.CacheTTL = parseDuration("CACHE_TTL", 10*time.Minute, &errs)
	cfg.S3PresignTTL = parseDuration("S3_PRESIGN_TTL", time.Hour, &errs)
	cfg.MediaURLTTL = parseDuration("MEDIA_URL_TTL", time.Hour, &errs)
	cfg.BlobTimeout = parseDuration("BLOB_TIMEOUT", 10*time.Minute, &errs)
	cfg.MetadataTimeout = parseDuration("METADATA_TIMEOUT", 10*time.Second, &errs)
	cfg.ProgressInterval = parseDuration("PROGRESS_INTERVAL", 200*time.Millisecond, &errs)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	var errs []error

	switch c.MetadataBackend {
	case "gorm":
		if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
			errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
		}
	case "dynamodb":
		if c.DynamoTable == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE is required for the dynamodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("METADATA_BACKEND must be gorm or dynamodb, got %q", c.MetadataBackend))
	}

	switch c.StorageBackend {
	case "local":
		if c.MediaURLTTL <= 0 {
			errs = append(errs, errors.New("MEDIA_URL_TTL must be positive"))
		}
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be local or s3, got %q", c.StorageBackend))
	}

	if c.PasswordScheme != "sha256" && c.PasswordScheme != "bcrypt" {
		errs = append(errs, fmt.Errorf("PASSWORD_SCHEME must be sha256 or bcrypt, got %q", c.PasswordScheme))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.BlobTimeout <= 0 || c.MetadataTimeout <= 0 {
		errs = append(errs, errors.New("BLOB_TIMEOUT and METADATA_TIMEOUT must be positive"))
	}
	if c.CacheSize < 0 {
		errs = append(errs, errors.New("CACHE_SIZE must not be negative"))
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func parseBool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func parseDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
