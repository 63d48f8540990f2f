package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

type TradeStationConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	RedirectURI  string `yaml:"redirect_uri"`
	AccountKey   string `yaml:"account_key"`
}

type RiskConfig struct {
	MaxOpenPositions   int     `yaml:"max_open_positions"`
	MaxRiskPerTrade    float64 `yaml:"max_risk_per_trade"`
	MaxTotalRisk       float64 `yaml:"max_total_risk"`
	ContractMultiplier int     `yaml:"contract_multiplier"`
}

type TradeConfig struct {
	Quantity int `yaml:"quantity"`
}

type ControlsConfig struct {
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
}

type AdminConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	CsvPath string `yaml:"csv_path"`
}

type Config struct {
	Discord      DiscordConfig      `yaml:"discord"`
	TradeStation TradeStationConfig `yaml:"tradestation"`
	Risk         RiskConfig         `yaml:"risk"`
	Trade        TradeConfig        `yaml:"trade"`
	Controls     ControlsConfig     `yaml:"controls"`
	Admin        AdminConfig        `yaml:"admin"`
	Journal      JournalConfig      `yaml:"journal"`
}

var envVarRegexp = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads a YAML config file, expanding ${VAR} and ${VAR:-default}
// references with values from the environment before unmarshalling.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: failed to read config file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("Load: failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func expandEnvVars(data string) string {
	return envVarRegexp.ReplaceAllStringFunc(data, func(match string) string {
		expr := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")

		if name, fallback, found := strings.Cut(expr, ":-"); found {
			if value := os.Getenv(name); value != "" {
				return value
			}
			return fallback
		}

		return os.Getenv(expr)
	})
}

func (c *Config) applyDefaults() {
	if c.TradeStation.BaseURL == "" {
		c.TradeStation.BaseURL = "https://sim-api.tradestation.com/v3"
	}

	if c.Risk.MaxOpenPositions == 0 {
		c.Risk.MaxOpenPositions = 5
	}

	if c.Risk.MaxRiskPerTrade == 0 {
		c.Risk.MaxRiskPerTrade = 100.0
	}

	if c.Risk.MaxTotalRisk == 0 {
		c.Risk.MaxTotalRisk = 300.0
	}

	if c.Risk.ContractMultiplier == 0 {
		c.Risk.ContractMultiplier = 100
	}

	if c.Trade.Quantity == 0 {
		c.Trade.Quantity = 1
	}

	if c.Controls.MaxConsecutiveFailures == 0 {
		c.Controls.MaxConsecutiveFailures = 3
	}

	if c.Admin.Addr == "" {
		c.Admin.Addr = ":8080"
	}

	if c.Journal.CsvPath == "" {
		c.Journal.CsvPath = "journal.csv"
	}
}
