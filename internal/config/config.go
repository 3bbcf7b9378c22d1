// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend selector values accepted in STORAGE_BACKEND.
const (
	BackendLocal       = "local"
	BackendS3          = "s3"
	BackendObjectStore = "minio"
)

const defaultRegion = "us-east-1"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Cache   CacheConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// StorageConfig selects and configures the single active storage backend.
type StorageConfig struct {
	Backend           string
	Bucket            string
	Endpoint          string
	Region            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	AllowedExtensions []string
	BaseDir           string
	FetchTimeout      time.Duration
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type LogConfig struct {
	Level string
	JSON  bool
}

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// Load reads the process-wide configuration once. Subsequent calls return
// the same instance (or the same error).
func Load() (*Config, error) {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		v.AutomaticEnv()

		instance, loadErr = New(v)
	})

	return instance, loadErr
}

// New builds a validated Config from v, applying defaults for unset keys.
func New(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetStringSlice("SERVER_ALLOWED_ORIGINS")),
		},
		Storage: StorageConfig{
			Backend:           strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
			Bucket:            v.GetString("STORAGE_BUCKET"),
			Endpoint:          v.GetString("STORAGE_ENDPOINT"),
			Region:            v.GetString("STORAGE_REGION"),
			AccessKey:         v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:         v.GetString("STORAGE_SECRET_KEY"),
			UseSSL:            v.GetBool("STORAGE_USE_SSL"),
			AllowedExtensions: splitList(v.GetStringSlice("STORAGE_ALLOWED_EXTENSIONS")),
			BaseDir:           v.GetString("STORAGE_BASE_DIR"),
			FetchTimeout:      time.Duration(v.GetInt("STORAGE_FETCH_TIMEOUT_SECONDS")) * time.Second,
		},
		Cache: CacheConfig{
			Enabled:       v.GetBool("CACHE_ENABLED"),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			JSON:  v.GetBool("LOG_JSON"),
		},
	}

	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("STORAGE_BACKEND", BackendLocal)
	v.SetDefault("STORAGE_REGION", defaultRegion)
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_ALLOWED_EXTENSIONS", []string{".pdf", ".png", ".jpg", ".jpeg", ".bmp", ".doc", ".docx"})
	v.SetDefault("STORAGE_BASE_DIR", "./data")
	v.SetDefault("STORAGE_FETCH_TIMEOUT_SECONDS", 0)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
}

// ErrInvalidStorage is returned (wrapped) for any storage configuration
// that cannot back a router.
var ErrInvalidStorage = errors.New("invalid storage configuration")

// Validate reports the required fields missing for the selected backend.
// An "object-store" selector is rewritten to BackendObjectStore.
func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case "", BackendLocal:
		c.Backend = BackendLocal
		if strings.TrimSpace(c.BaseDir) == "" {
			return fmt.Errorf("%w: local backend requires STORAGE_BASE_DIR", ErrInvalidStorage)
		}
	case BackendS3:
		if err := requireFields(c.Backend, map[string]string{
			"STORAGE_BUCKET":     c.Bucket,
			"STORAGE_ACCESS_KEY": c.AccessKey,
			"STORAGE_SECRET_KEY": c.SecretKey,
		}); err != nil {
			return err
		}
		if strings.TrimSpace(c.Region) == "" {
			c.Region = defaultRegion
		}
	case BackendObjectStore, "object-store", "objectstore":
		c.Backend = BackendObjectStore
		if err := requireFields(c.Backend, map[string]string{
			"STORAGE_ENDPOINT":   c.Endpoint,
			"STORAGE_BUCKET":     c.Bucket,
			"STORAGE_ACCESS_KEY": c.AccessKey,
			"STORAGE_SECRET_KEY": c.SecretKey,
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidStorage, c.Backend)
	}
	return nil
}

func requireFields(backend string, fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s backend requires %s", ErrInvalidStorage, backend, strings.Join(missing, ", "))
}

// splitList flattens comma separated entries, which is how list values
// arrive from the environment.
func splitList(values []string) []string {
	var parsed []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed
}
