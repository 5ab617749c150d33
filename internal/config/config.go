package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for the ingestion service.
type Config struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Neo4j    Neo4jConfig    `yaml:"neo4j" mapstructure:"neo4j"`
	Edgar    EdgarConfig    `yaml:"edgar" mapstructure:"edgar"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Review   ReviewConfig   `yaml:"review" mapstructure:"review"`
	Backfill BackfillConfig `yaml:"backfill" mapstructure:"backfill"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

type EdgarConfig struct {
	// SEC requires a User-Agent of the form "Name email@example.com".
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond int           `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type LLMConfig struct {
	Provider     string        `yaml:"provider" mapstructure:"provider"` // "anthropic", "openai", "none"
	AnthropicKey string        `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	OpenAIKey    string        `yaml:"openai_key" mapstructure:"openai_key"`
	Model        string        `yaml:"model" mapstructure:"model"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UseKeychain  bool          `yaml:"use_keychain" mapstructure:"use_keychain"`
}

type RedisConfig struct {
	// Addr enables the proactive LLM rate limiter; empty disables it.
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type ReviewConfig struct {
	// DBPath is the SQLite file backing the review queue.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	// Thresholds is the per-kind auto-accept bar: candidates at or above
	// the threshold load directly, below it they queue for review.
	Thresholds map[string]float64 `yaml:"thresholds" mapstructure:"thresholds"`

	// DefaultThreshold applies to kinds missing from Thresholds.
	DefaultThreshold float64 `yaml:"default_threshold" mapstructure:"default_threshold"`
}

type BackfillConfig struct {
	Concurrency       int           `yaml:"concurrency" mapstructure:"concurrency"`
	FilingsPerCompany int           `yaml:"filings_per_company" mapstructure:"filings_per_company"`
	CompanyDelay      time.Duration `yaml:"company_delay" mapstructure:"company_delay"`
	CheckpointPath    string        `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
}

// Default returns the baseline configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".edgargraph")
	return &Config{
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		Edgar: EdgarConfig{
			RequestsPerSecond: 10, // SEC fair-access limit
			Timeout:           30 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "anthropic",
			Timeout:  60 * time.Second,
		},
		Review: ReviewConfig{
			DBPath:           filepath.Join(stateDir, "review_queue.db"),
			DefaultThreshold: 0.9,
			Thresholds: map[string]float64{
				// Rule-based parsers emit 0.95, so verified table parses
				// auto-load while LLM output usually queues.
				"ownership":   0.9,
				"officer":     0.9,
				"director":    0.9,
				"subsidiary":  0.9,
				"transaction": 0.9,
			},
		},
		Backfill: BackfillConfig{
			Concurrency:       3,
			FilingsPerCompany: 50,
			CompanyDelay:      500 * time.Millisecond,
			CheckpointPath:    filepath.Join(stateDir, "backfill.db"),
		},
	}
}

// Load reads configuration from .env files, a YAML config file, and
// environment variables (EDGARGRAPH_ prefix), in increasing precedence.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("EDGARGRAPH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".edgargraph")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".edgargraph"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Missing config file is fine, defaults + env apply.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env files, local overrides first.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides maps well-known environment variables onto the config.
// These take precedence over file values, matching the upstream services
// they name.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		cfg.Neo4j.Username = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		cfg.Neo4j.Password = v
	}
	if v := os.Getenv("SEC_EDGAR_USER_AGENT"); v != "" {
		cfg.Edgar.UserAgent = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.AnthropicKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIKey = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}

// Validate checks settings needed before any pipeline run.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}
	if c.Edgar.UserAgent == "" {
		return fmt.Errorf("edgar.user_agent is required: SEC requires a User-Agent with your name and email (set SEC_EDGAR_USER_AGENT)")
	}
	for kind, t := range c.Review.Thresholds {
		if t < 0 || t > 1 {
			return fmt.Errorf("review threshold for %s must be in [0,1], got %f", kind, t)
		}
	}
	if c.Review.DefaultThreshold < 0 || c.Review.DefaultThreshold > 1 {
		return fmt.Errorf("review.default_threshold must be in [0,1]")
	}
	if c.Backfill.Concurrency < 1 {
		return fmt.Errorf("backfill.concurrency must be at least 1")
	}
	return nil
}

// Threshold returns the auto-accept bar for a candidate kind.
func (c *Config) Threshold(kind string) float64 {
	if t, ok := c.Review.Thresholds[kind]; ok {
		return t
	}
	return c.Review.DefaultThreshold
}

// Save writes the configuration as YAML to the given path, creating
// parent directories as needed. Used by the configure command.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
