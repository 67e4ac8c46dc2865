package config

import (
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	ORS     ORSConfig     `yaml:"ors" mapstructure:"ors"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Crime   CrimeConfig   `yaml:"crime" mapstructure:"crime"`
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	// Sessions unused for this long are destroyed.
	SessionIdleMinutes int `yaml:"session_idle_minutes" mapstructure:"session_idle_minutes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	SqlitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DSN returns the connection string for the configured driver.
func (s StoreConfig) DSN() string {
	if s.Driver == "postgres" {
		return s.DatabaseURL
	}
	return s.SqlitePath
}

// GeocodeConfig configures address lookups.
type GeocodeConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	NominatimURL   string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	ViewBox        string  `yaml:"viewbox" mapstructure:"viewbox"`
	Country        string  `yaml:"country" mapstructure:"country"`
	RegionHint     string  `yaml:"region_hint" mapstructure:"region_hint"`
	DebounceMillis int     `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	CacheEnabled   bool    `yaml:"cache_enabled" mapstructure:"cache_enabled"`
}

// ORSConfig holds OpenRouteService credentials.
type ORSConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Profile string `yaml:"profile" mapstructure:"profile"`
}

// ScoringConfig configures the route safety scoring collaborator.
type ScoringConfig struct {
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// RedisConfig configures the scoring cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// CrimeConfig selects where crime datasets come from.
type CrimeConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	DefaultDataset string `yaml:"default_dataset" mapstructure:"default_dataset"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFEROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 60)
	v.SetDefault("server.session_idle_minutes", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "data/app.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "safe-route-service/1.0")
	v.SetDefault("geocode.viewbox", "-112.5,40.5,-111,42")
	v.SetDefault("geocode.country", "us")
	v.SetDefault("geocode.region_hint", " Utah")
	v.SetDefault("geocode.debounce_ms", 1000)
	v.SetDefault("geocode.rate_per_second", 1.0)
	v.SetDefault("geocode.cache_enabled", true)
	v.SetDefault("ors.api_key", "")
	v.SetDefault("ors.base_url", "https://api.openrouteservice.org")
	v.SetDefault("ors.profile", "foot-walking")
	v.SetDefault("scoring.base_url", "http://localhost:8000")
	v.SetDefault("scoring.timeout_secs", 30)
	v.SetDefault("scoring.cache_ttl_minutes", 30)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("crime.provider", "sql")
	v.SetDefault("crime.base_url", "http://localhost:8000")
	v.SetDefault("crime.default_dataset", "ogden_mock_data.csv")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it starts.
func (c *Config) Validate(command string) error {
	var missing []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SqlitePath == "" {
			missing = append(missing, "store.sqlite_path is required")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	default:
		missing = append(missing, "store.driver must be sqlite or postgres")
	}

	if command == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be between 1 and 65535")
		}
		if c.Geocode.Provider != "nominatim" && c.Geocode.Provider != "ors" {
			missing = append(missing, "geocode.provider must be nominatim or ors")
		}
		if c.Geocode.Provider == "ors" && c.ORS.APIKey == "" {
			missing = append(missing, "ors.api_key is required for the ors geocoder")
		}
		if c.Scoring.BaseURL == "" {
			missing = append(missing, "scoring.base_url is required")
		}
	}

	switch c.Crime.Provider {
	case "sql":
	case "http":
		if c.Crime.BaseURL == "" {
			missing = append(missing, "crime.base_url is required for the http provider")
		}
	default:
		missing = append(missing, "crime.provider must be sql or http")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

var (
	bootOnce sync.Once
	bootCfg  *Config
	bootErr  error
)

// Bootstrap performs process-wide initialization exactly once: it loads
// .env files, reads the configuration and installs the global logger.
// Every call returns the result of the first one.
func Bootstrap() (*Config, error) {
	bootOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			zap.L().Debug("no .env file found, using environment variables")
		}

		cfg, err := Load()
		if err != nil {
			bootErr = err
			return
		}
		if err := InitLogger(cfg.Log); err != nil {
			bootErr = err
			return
		}
		bootCfg = cfg
	})
	return bootCfg, bootErr
}
