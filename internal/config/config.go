// Package config loads the layered application configuration and installs
// the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is resolved once at
// process start and passed explicitly into constructors.
type Config struct {
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Sink       SinkConfig       `yaml:"sink" mapstructure:"sink"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// OpenRouterConfig holds the enrichment service credentials and model.
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ColumnMap fixes which cell index feeds which tender field. The listing
// table's layout is positional, so upstream drift is a config change here
// rather than a code change.
type ColumnMap struct {
	ClosingDate int `yaml:"closing_date" mapstructure:"closing_date"`
	TitleRef    int `yaml:"title_ref" mapstructure:"title_ref"`
	Ministry    int `yaml:"ministry" mapstructure:"ministry"`
}

// ScrapeConfig configures the listing scrape.
type ScrapeConfig struct {
	ListingURL  string    `yaml:"listing_url" mapstructure:"listing_url"`
	SubmitURL   string    `yaml:"submit_url" mapstructure:"submit_url"`
	UserAgent   string    `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRows     int       `yaml:"max_rows" mapstructure:"max_rows"`
	MinColumns  int       `yaml:"min_columns" mapstructure:"min_columns"`
	Columns     ColumnMap `yaml:"columns" mapstructure:"columns"`
	TimeoutSecs int       `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EnrichConfig configures the enrichment rate governor.
type EnrichConfig struct {
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	CooldownSecs   int     `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// SinkConfig configures the artifact writer.
type SinkConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the trigger/readout server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from environment and file. Environment
// variables (TENDER_ prefix) take precedence over config.yaml, which takes
// precedence over defaults; the file is optional.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The key default keeps the path known to viper so the env
	// layer can supply it without a config file.
	v.SetDefault("openrouter.key", "")
	v.SetDefault("openrouter.model", "meta-llama/llama-3.2-3b-instruct")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("scrape.listing_url", "https://eprocure.gov.in/eprocure/app?page=FrontEndListTendersbyDate&service=page")
	v.SetDefault("scrape.submit_url", "https://eprocure.gov.in/eprocure/app")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scrape.max_rows", 10)
	v.SetDefault("scrape.min_columns", 5)
	v.SetDefault("scrape.columns.closing_date", 2)
	v.SetDefault("scrape.columns.title_ref", 4)
	v.SetDefault("scrape.columns.ministry", 5)
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("enrich.requests_per_sec", 1.0)
	v.SetDefault("enrich.cooldown_secs", 5)
	v.SetDefault("sink.path", "output/tenders_clean.csv")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
