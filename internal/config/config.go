// Package config loads pipeline configuration from ~/.pipeline/config.toml
// with environment variable overrides (PIPELINE_* prefix).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// DefaultStages is the pipeline stage order used when the config file
// does not define one.
var DefaultStages = []string{"lead", "qualified", "proposal", "negotiation", "closed_won", "closed_lost"}

// Config is the full pipeline configuration.
type Config struct {
	Pipeline     PipelineConfig     `toml:"pipeline"`
	Agent        AgentConfig        `toml:"agent"`
	Providers    ProvidersConfig    `toml:"providers"`
	Integrations IntegrationsConfig `toml:"integrations"`
	Notify       NotifyConfig       `toml:"notify"`
}

// PipelineConfig controls core CRM behavior.
type PipelineConfig struct {
	DBPath    string   `toml:"db_path" envconfig:"DB_PATH"`
	Stages    []string `toml:"stages"`
	Currency  string   `toml:"currency" envconfig:"CURRENCY"`
	StaleDays int      `toml:"stale_days" envconfig:"STALE_DAYS"`
}

// AgentConfig controls the agent loop.
type AgentConfig struct {
	Model         string `toml:"model" envconfig:"MODEL"`
	MaxIterations int    `toml:"max_iterations" envconfig:"MAX_ITERATIONS"`
	AutoApprove   bool   `toml:"auto_approve" envconfig:"AUTO_APPROVE"`
}

// ProvidersConfig holds LLM provider credentials.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `toml:"openai"`
}

// OpenAIConfig configures any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key" envconfig:"API_KEY"`
	APIBase string `toml:"api_base" envconfig:"API_BASE"`
}

// IntegrationsConfig lists external tool servers.
type IntegrationsConfig struct {
	Servers []ToolServerConfig `toml:"servers"`
}

// ToolServerConfig identifies one remote tool server. Servers are
// opt-in: only entries with enabled = true are contacted.
type ToolServerConfig struct {
	Name    string `toml:"name"`
	URL     string `toml:"url"`
	Token   string `toml:"token"`
	Enabled bool   `toml:"enabled"`
}

// NotifyConfig configures run notifications.
type NotifyConfig struct {
	SlackToken   string `toml:"slack_token" envconfig:"SLACK_TOKEN"`
	SlackChannel string `toml:"slack_channel" envconfig:"SLACK_CHANNEL"`
}

// Dir returns the pipeline home directory, ~/.pipeline by default.
// PIPELINE_HOME overrides it.
func Dir() string {
	if custom := os.Getenv("PIPELINE_HOME"); custom != "" {
		return custom
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pipeline"
	}
	return filepath.Join(home, ".pipeline")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, applies defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom loads configuration from an explicit path with environment
// overrides applied.
func LoadFrom(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	// Environment overrides beat file values.
	if err := envconfig.Process("PIPELINE", &cfg.Pipeline); err != nil {
		return nil, fmt.Errorf("apply PIPELINE environment overrides: %w", err)
	}
	if err := envconfig.Process("PIPELINE_AGENT", &cfg.Agent); err != nil {
		return nil, fmt.Errorf("apply PIPELINE_AGENT environment overrides: %w", err)
	}
	if err := envconfig.Process("PIPELINE_OPENAI", &cfg.Providers.OpenAI); err != nil {
		return nil, fmt.Errorf("apply PIPELINE_OPENAI environment overrides: %w", err)
	}
	if err := envconfig.Process("PIPELINE_NOTIFY", &cfg.Notify); err != nil {
		return nil, fmt.Errorf("apply PIPELINE_NOTIFY environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadFile reads the config file and applies defaults, skipping
// environment overrides. Used when writing the file back, so transient
// environment values are not persisted.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Pipeline.DBPath == "" {
		cfg.Pipeline.DBPath = filepath.Join(Dir(), "pipeline.db")
	}
	if len(cfg.Pipeline.Stages) == 0 {
		cfg.Pipeline.Stages = append([]string(nil), DefaultStages...)
	}
	if cfg.Pipeline.Currency == "" {
		cfg.Pipeline.Currency = "USD"
	}
	if cfg.Pipeline.StaleDays <= 0 {
		cfg.Pipeline.StaleDays = 14
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = "gpt-4o"
	}
	if cfg.Agent.MaxIterations <= 0 {
		cfg.Agent.MaxIterations = 10
	}
}

// Save writes the config back to its file, creating the directory if
// needed.
func Save(cfg *Config) error {
	return SaveTo(cfg, Path())
}

// SaveTo writes configuration to an explicit path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Get returns a config value by dotted key, e.g. "agent.model".
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "pipeline.db_path":
		return c.Pipeline.DBPath, nil
	case "pipeline.stages":
		return strings.Join(c.Pipeline.Stages, ","), nil
	case "pipeline.currency":
		return c.Pipeline.Currency, nil
	case "pipeline.stale_days":
		return strconv.Itoa(c.Pipeline.StaleDays), nil
	case "agent.auto_approve":
		return strconv.FormatBool(c.Agent.AutoApprove), nil
	case "agent.model":
		return c.Agent.Model, nil
	case "agent.max_iterations":
		return strconv.Itoa(c.Agent.MaxIterations), nil
	case "providers.openai.api_key":
		return c.Providers.OpenAI.APIKey, nil
	case "providers.openai.api_base":
		return c.Providers.OpenAI.APIBase, nil
	case "notify.slack_token":
		return c.Notify.SlackToken, nil
	case "notify.slack_channel":
		return c.Notify.SlackChannel, nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Set updates a config value by dotted key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "pipeline.db_path":
		c.Pipeline.DBPath = value
	case "pipeline.stages":
		c.Pipeline.Stages = strings.Split(value, ",")
	case "pipeline.currency":
		c.Pipeline.Currency = value
	case "pipeline.stale_days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("stale_days must be a number: %w", err)
		}
		c.Pipeline.StaleDays = n
	case "agent.auto_approve":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("auto_approve must be true or false: %w", err)
		}
		c.Agent.AutoApprove = b
	case "agent.model":
		c.Agent.Model = value
	case "agent.max_iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_iterations must be a number: %w", err)
		}
		c.Agent.MaxIterations = n
	case "providers.openai.api_key":
		c.Providers.OpenAI.APIKey = value
	case "providers.openai.api_base":
		c.Providers.OpenAI.APIBase = value
	case "notify.slack_token":
		c.Notify.SlackToken = value
	case "notify.slack_channel":
		c.Notify.SlackChannel = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
