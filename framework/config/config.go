package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Container ContainerConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

// ContainerConfig holds the container policy knobs. Values are kept as
// strings here and parsed by the container package.
type ContainerConfig struct {
	ScopePolicy     string // permissive | strict
	DefaultLifetime string // transient | scoped | request | singleton
	Metrics         bool
	Diagnostics     bool
	DiagnosticsPath string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	env := Get("APP_ENV", "local")

	return &Config{
		App: AppConfig{
			Name:  Get("APP_NAME", "go-containers"),
			Env:   env,
			Debug: GetBool("APP_DEBUG", env == "local"),
			Port:  Get("APP_PORT", "8000"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(Get("LOG_LEVEL", "info")),
			Format: strings.ToLower(Get("LOG_FORMAT", defaultFormat(env))),
		},
		Container: ContainerConfig{
			ScopePolicy:     strings.ToLower(Get("CONTAINER_SCOPE_POLICY", "permissive")),
			DefaultLifetime: strings.ToLower(Get("CONTAINER_DEFAULT_LIFETIME", "transient")),
			Metrics:         GetBool("CONTAINER_METRICS", true),
			Diagnostics:     GetBool("CONTAINER_DIAGNOSTICS", env != "production"),
			DiagnosticsPath: Get("CONTAINER_DIAGNOSTICS_PATH", "/_container"),
		},
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// ── helpers ─────────────────────────────────────────────────────────────────

func defaultFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "console"
}
