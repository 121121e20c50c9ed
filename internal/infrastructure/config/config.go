package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Log      LogConfig
	Database DatabaseConfig
	HTTP     HTTPConfig
	Imweb    ImwebConfig
	Watch    WatchConfig
	Notify   NotifyConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds the SQLite storage settings
type DatabaseConfig struct {
	// Path is the SQLite database file; ":memory:" for ephemeral storage
	Path string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// ImwebConfig holds imweb platform API settings. APIKey/APISecret are the
// operator-entered credentials; DefaultAPIKey/DefaultAPISecret are the
// build-time fallback pair used when the operator has not entered any.
type ImwebConfig struct {
	BaseURL          string
	APIKey           string
	APISecret        string
	DefaultAPIKey    string
	DefaultAPISecret string
	TimeoutSeconds   int
	PageSize         int
}

// WatchConfig holds poll cycle settings
type WatchConfig struct {
	IntervalMinutes int
	LookbackDays    int
	MaxPages        int
	MaxOrders       int
	DebugOrders     int
}

// NotifyConfig holds desktop notification settings
type NotifyConfig struct {
	AppName            string
	Title              string
	IconPath           string
	TestTimeoutSeconds int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with IMWEB_ prefix (e.g., IMWEB_IMWEB_API_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/imweb-cancel-notification")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("IMWEB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Imweb: ImwebConfig{
			BaseURL:          v.GetString("imweb.base_url"),
			APIKey:           v.GetString("imweb.api_key"),
			APISecret:        v.GetString("imweb.api_secret"),
			DefaultAPIKey:    v.GetString("imweb.default_api_key"),
			DefaultAPISecret: v.GetString("imweb.default_api_secret"),
			TimeoutSeconds:   v.GetInt("imweb.timeout_seconds"),
			PageSize:         v.GetInt("imweb.page_size"),
		},
		Watch: WatchConfig{
			IntervalMinutes: v.GetInt("watch.interval_minutes"),
			LookbackDays:    v.GetInt("watch.lookback_days"),
			MaxPages:        v.GetInt("watch.max_pages"),
			MaxOrders:       v.GetInt("watch.max_orders"),
			DebugOrders:     v.GetInt("watch.debug_orders"),
		},
		Notify: NotifyConfig{
			AppName:            v.GetString("notify.app_name"),
			Title:              v.GetString("notify.title"),
			IconPath:           v.GetString("notify.icon_path"),
			TestTimeoutSeconds: v.GetInt("notify.test_timeout_seconds"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "imweb-cancel-notification"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8090"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "watcher.db"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Imweb.BaseURL == "" {
		cfg.Imweb.BaseURL = "https://api.imweb.me/v2"
	}
	if cfg.Imweb.TimeoutSeconds == 0 {
		cfg.Imweb.TimeoutSeconds = 15
	}
	if cfg.Imweb.PageSize == 0 {
		cfg.Imweb.PageSize = 100
	}
	if cfg.Watch.IntervalMinutes == 0 {
		cfg.Watch.IntervalMinutes = 5
	}
	if cfg.Watch.LookbackDays == 0 {
		cfg.Watch.LookbackDays = 7
	}
	if cfg.Watch.MaxPages == 0 {
		cfg.Watch.MaxPages = 10
	}
	if cfg.Watch.MaxOrders == 0 {
		cfg.Watch.MaxOrders = 100
	}
	if cfg.Watch.DebugOrders == 0 {
		cfg.Watch.DebugOrders = 3
	}
	if cfg.Notify.AppName == "" {
		cfg.Notify.AppName = cfg.App.Name
	}
	if cfg.Notify.TestTimeoutSeconds == 0 {
		cfg.Notify.TestTimeoutSeconds = 3
	}
	// Notify.Title default lives with the notifier so the Korean shop title
	// is defined in one place.
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Imweb.PageSize <= 0 {
		return fmt.Errorf("imweb.page_size must be positive")
	}
	if c.Watch.LookbackDays <= 0 {
		return fmt.Errorf("watch.lookback_days must be positive")
	}
	if c.Watch.MaxPages <= 0 || c.Watch.MaxOrders <= 0 {
		return fmt.Errorf("watch.max_pages and watch.max_orders must be positive")
	}

	// A key without its secret (or vice versa) is a configuration mistake,
	// not a half-usable credential.
	if (c.Imweb.APIKey == "") != (c.Imweb.APISecret == "") {
		return fmt.Errorf("imweb.api_key and imweb.api_secret must be set together")
	}
	if (c.Imweb.DefaultAPIKey == "") != (c.Imweb.DefaultAPISecret == "") {
		return fmt.Errorf("imweb.default_api_key and imweb.default_api_secret must be set together")
	}

	return nil
}
