// Package config loads and validates newslinker configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Feeds    FeedsConfig    `mapstructure:"feeds"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DBConfig holds the credentials used to open and reopen the database
// connection. DBTable names the database.
type DBConfig struct {
	Host           string        `mapstructure:"dbhost"`
	Port           int           `mapstructure:"dbport"`
	User           string        `mapstructure:"dbuser"`
	Password       string        `mapstructure:"dbpassword"`
	Table          string        `mapstructure:"dbtable"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// ExtractConfig controls entity extraction.
type ExtractConfig struct {
	FuzzyRatio  int           `mapstructure:"fuzzyratio"`
	NLPEndpoint string        `mapstructure:"nlp_endpoint"`
	NLPTimeout  time.Duration `mapstructure:"nlp_timeout"`
}

// ResolverConfig tunes catalog matching.
type ResolverConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	ReadRetries         int     `mapstructure:"read_retries"`
}

// FeedsConfig governs the feed producers.
type FeedsConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	HostRPS        float64       `mapstructure:"host_rps"`
	HostBurst      int           `mapstructure:"host_burst"`
}

// ServerConfig controls the metrics and health listener. An empty address
// disables it.
type ServerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// LoggingConfig toggles zap development features and file output.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSLINKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registered so AutomaticEnv can populate keys absent from the file.
	v.SetDefault("db.dbhost", "")
	v.SetDefault("db.dbuser", "")
	v.SetDefault("db.dbpassword", "")
	v.SetDefault("db.dbtable", "")
	v.SetDefault("extract.nlp_endpoint", "")
	v.SetDefault("logging.file", "")

	v.SetDefault("db.dbport", 5432)
	v.SetDefault("db.connect_timeout", 10*time.Second)
	v.SetDefault("extract.fuzzyratio", 90)
	v.SetDefault("extract.nlp_timeout", 30*time.Second)
	v.SetDefault("resolver.similarity_threshold", 0.5)
	v.SetDefault("resolver.read_retries", 1)
	v.SetDefault("feeds.concurrency", 4)
	v.SetDefault("feeds.user_agent", "newslinker/0.1")
	v.SetDefault("feeds.request_timeout", 20*time.Second)
	v.SetDefault("feeds.host_rps", 1.0)
	v.SetDefault("feeds.host_burst", 2)
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
}

// Validate enforces reasonable limits. Database credentials are checked
// separately by ValidateDB since dry runs never open a connection.
func (c Config) Validate() error {
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		return fmt.Errorf("db.dbport must be within 1..65535")
	}
	if c.Extract.FuzzyRatio < 0 || c.Extract.FuzzyRatio > 100 {
		return fmt.Errorf("extract.fuzzyratio must be within 0..100")
	}
	if c.Resolver.SimilarityThreshold <= 0 || c.Resolver.SimilarityThreshold > 1 {
		return fmt.Errorf("resolver.similarity_threshold must be within (0, 1]")
	}
	if c.Resolver.ReadRetries < 0 {
		return fmt.Errorf("resolver.read_retries must be >= 0")
	}
	if c.Feeds.Concurrency <= 0 {
		return fmt.Errorf("feeds.concurrency must be > 0")
	}
	if c.Feeds.HostRPS < 0 {
		return fmt.Errorf("feeds.host_rps must be >= 0")
	}
	return nil
}

// ValidateDB enforces the credentials needed to open the database.
func (c Config) ValidateDB() error {
	if c.DB.Host == "" {
		return fmt.Errorf("db.dbhost is required")
	}
	if c.DB.User == "" {
		return fmt.Errorf("db.dbuser is required")
	}
	if c.DB.Table == "" {
		return fmt.Errorf("db.dbtable is required")
	}
	return nil
}
