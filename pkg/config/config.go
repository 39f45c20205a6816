package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		URL       string `yaml:"url"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	LLM struct {
		Enabled     bool    `yaml:"enabled"`
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		EmbedModel  string  `yaml:"embed_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Fetch struct {
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		MaxAttempts    int     `yaml:"max_attempts"`
		BackoffSeconds int     `yaml:"backoff_seconds"`
		RateLimit      float64 `yaml:"rate_limit"`
	} `yaml:"fetch"`

	Crawler struct {
		DefaultMaxHits int `yaml:"default_max_hits"`
	} `yaml:"crawler"`

	Scheduler struct {
		CheckIntervalSeconds int `yaml:"check_interval_seconds"`
	} `yaml:"scheduler"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/sitewatch/config.yaml"),
			"/etc/sitewatch/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 4000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.1
	}

	if config.Fetch.TimeoutSeconds == 0 {
		config.Fetch.TimeoutSeconds = 30
	}
	if config.Fetch.MaxAttempts == 0 {
		config.Fetch.MaxAttempts = 3
	}
	if config.Fetch.BackoffSeconds == 0 {
		config.Fetch.BackoffSeconds = 1
	}
	if config.Fetch.RateLimit == 0 {
		config.Fetch.RateLimit = 2.0
	}

	if config.Crawler.DefaultMaxHits == 0 {
		config.Crawler.DefaultMaxHits = 100
	}

	if config.Scheduler.CheckIntervalSeconds == 0 {
		config.Scheduler.CheckIntervalSeconds = 60
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if addr := os.Getenv("SITEWATCH_LISTEN_ADDR"); addr != "" {
		config.Server.ListenAddr = addr
	}
}
