package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Coordinator CoordinatorConfig          `yaml:"coordinator"`
	Agents      map[string]AgentDefinition `yaml:"agents"`
	Cache       CacheConfig                `yaml:"cache"`
	Retry       RetryConfig                `yaml:"retry"`
	Search      SearchConfig               `yaml:"search"`
	NATS        NATSConfig                 `yaml:"nats"`
	Store       StoreConfig                `yaml:"store"`
	Web         WebConfig                  `yaml:"web"`
	Scheduler   SchedulerConfig            `yaml:"scheduler"`
	Telegram    TelegramConfig             `yaml:"telegram"`
	Vault       VaultConfig                `yaml:"vault"`
}

type CoordinatorConfig struct {
	// NoBidPolicy decides what happens when no agent bids on a task:
	// "skip" records the task as skipped and continues, "abort" stops the
	// remaining plan.
	NoBidPolicy string `yaml:"no_bid_policy"`
	ReportsDir  string `yaml:"reports_dir"`
}

// AgentDefinition describes one specialist in the pool. Keywords drive the
// capability self-assessment; Confidence and EstimatedCost become its bid.
type AgentDefinition struct {
	Capability    string            `yaml:"capability"`
	Description   string            `yaml:"description"`
	Keywords      []string          `yaml:"keywords"`
	Confidence    float64           `yaml:"confidence"`
	EstimatedCost float64           `yaml:"estimated_cost"`
	Disabled      bool              `yaml:"disabled"`
	Maintenance   MaintenanceConfig `yaml:"maintenance"`
}

// MaintenanceConfig is an optional periodic background routine for an
// agent, run by the scheduler.
type MaintenanceConfig struct {
	Schedule string `yaml:"schedule"` // cron expression or schedule JSON
	Routine  string `yaml:"routine"`
}

type CacheConfig struct {
	MaxSize int           `yaml:"max_size"`
	TTL     time.Duration `yaml:"ttl"`
}

type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	BaseBackoff       time.Duration `yaml:"base_backoff"`
	PerAttemptTimeout time.Duration `yaml:"per_attempt_timeout"`
}

type SearchConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"` // literal or "secret:<name>" vault reference
	Locale     string `yaml:"locale"`
	MaxResults int    `yaml:"max_results"`
	SafeSearch string `yaml:"safesearch"`
}

type NATSConfig struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Auth    string `yaml:"auth"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type VaultConfig struct {
	Passphrase string `yaml:"passphrase"`
}

func defaults() Config {
	return Config{
		Coordinator: CoordinatorConfig{
			NoBidPolicy: "skip",
			ReportsDir:  "data/reports",
		},
		Cache: CacheConfig{
			MaxSize: 100,
			TTL:     time.Hour,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			BaseBackoff:       500 * time.Millisecond,
			PerAttemptTimeout: 15 * time.Second,
		},
		Search: SearchConfig{
			Locale:     "en-US",
			MaxResults: 3,
			SafeSearch: "moderate",
		},
		NATS: NATSConfig{
			Port:    4222,
			DataDir: "data/nats",
		},
		Store: StoreConfig{
			Path: "data/manto.db",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("MANTO_CONFIG")
	if path == "" {
		path = "config/manto.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		// Expand environment variables in YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Coordinator.NoBidPolicy {
	case "skip", "abort":
	default:
		return fmt.Errorf("coordinator.no_bid_policy must be \"skip\" or \"abort\", got %q", c.Coordinator.NoBidPolicy)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MANTO_NO_BID_POLICY"); v != "" {
		cfg.Coordinator.NoBidPolicy = v
	}
	if v := os.Getenv("MANTO_SEARCH_ENDPOINT"); v != "" {
		cfg.Search.Endpoint = v
	}
	if v := os.Getenv("MANTO_SEARCH_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("MANTO_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("MANTO_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("MANTO_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("MANTO_WEB_AUTH"); v != "" {
		cfg.Web.Auth = v
	}
	if v := os.Getenv("MANTO_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("MANTO_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("MANTO_VAULT_PASSPHRASE"); v != "" {
		cfg.Vault.Passphrase = v
	}
}
