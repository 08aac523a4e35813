package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBackendURL  = "http://localhost:5001"
	DefaultFrontendURL = "http://localhost:3000"
	DefaultListenAddr  = ":3000"

	// AuthCookieName is set on the OAuth callback and read by the page guard
	// and every authenticated API route.
	AuthCookieName = "auth_token"
)

type Config struct {
	Web     WebConfig     `yaml:"web"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	Routes  Routes        `yaml:"routes"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

type WebConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	StaticDir      string `yaml:"static_dir"`
	AllowedOrigin  string `yaml:"allowed_origin"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type BackendConfig struct {
	URL string `yaml:"url"`
	// Timeout applies to every proxied call except scan detail and the
	// long-running scan calls.
	Timeout       time.Duration `yaml:"timeout"`
	ScanTimeout   time.Duration `yaml:"scan_timeout"`
	// UploadTimeout covers upload-and-scan and n8n analysis, which run the
	// scanner synchronously on the backend.
	UploadTimeout time.Duration `yaml:"upload_timeout"`
}

type AuthConfig struct {
	FrontendURL  string        `yaml:"frontend_url"`
	CookieMaxAge time.Duration `yaml:"cookie_max_age"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

// CacheConfig controls the per-user scan report cache. A zero ReportTTL
// disables it.
type CacheConfig struct {
	ReportTTL  time.Duration `yaml:"report_ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Web: WebConfig{
			ListenAddr:     getenv("WEB_LISTEN_ADDR", DefaultListenAddr),
			StaticDir:      os.Getenv("STATIC_DIR"),
			AllowedOrigin:  os.Getenv("ALLOWED_ORIGIN"),
			MaxUploadBytes: 32 << 20,
		},
		Backend: BackendConfig{
			URL:           getenv("BACKEND_URL", DefaultBackendURL),
			Timeout:       10 * time.Second,
			ScanTimeout:   15 * time.Second,
			UploadTimeout: 10 * time.Minute,
		},
		Auth: AuthConfig{
			FrontendURL:  getenv("NEXT_PUBLIC_FRONTEND_URL", DefaultFrontendURL),
			CookieMaxAge: 7 * 24 * time.Hour,
			SecureCookie: isProduction(),
		},
		Routes: DefaultRoutes(),
		Cache: CacheConfig{
			ReportTTL:  5 * time.Minute,
			MaxEntries: 256,
		},
		Log: LogConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
	}

	var err error
	if cfg.Backend.Timeout, err = durationEnv("BACKEND_TIMEOUT", cfg.Backend.Timeout); err != nil {
		return nil, err
	}
	if cfg.Backend.ScanTimeout, err = durationEnv("BACKEND_SCAN_TIMEOUT", cfg.Backend.ScanTimeout); err != nil {
		return nil, err
	}
	if cfg.Backend.UploadTimeout, err = durationEnv("BACKEND_UPLOAD_TIMEOUT", cfg.Backend.UploadTimeout); err != nil {
		return nil, err
	}
	if v := os.Getenv("REPORT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid REPORT_CACHE_TTL %q", v)
		}
		cfg.Cache.ReportTTL = d
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES %q", v)
		}
		cfg.Web.MaxUploadBytes = n
	}

	if path := os.Getenv("ROUTES_FILE"); path != "" {
		routes, err := LoadRoutes(path)
		if err != nil {
			return nil, err
		}
		cfg.Routes = routes
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize trims trailing slashes from URLs and fills the CORS origin.
func (c *Config) Normalize() {
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")
	c.Auth.FrontendURL = strings.TrimRight(c.Auth.FrontendURL, "/")
	if c.Web.AllowedOrigin == "" {
		c.Web.AllowedOrigin = c.Auth.FrontendURL
	}
}

func isProduction() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("NODE_ENV")
	}
	return strings.EqualFold(env, "production")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}
