package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Embedding struct {
		Backend   string  `yaml:"backend"`
		Model     string  `yaml:"model"`
		BaseURL   string  `yaml:"base_url"`
		Dimension int     `yaml:"dimension"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"embedding"`

	Database struct {
		Backend     string `yaml:"backend"`
		URL         string `yaml:"url"`
		TablePrefix string `yaml:"table_prefix"`
	} `yaml:"database"`

	Chunker struct {
		Delimiter string `yaml:"delimiter"`
	} `yaml:"chunker"`

	Search struct {
		Results             int `yaml:"results"`
		EmbedTimeoutSeconds int `yaml:"embed_timeout_seconds"`
	} `yaml:"search"`

	Dataset struct {
		File string `yaml:"file"`
	} `yaml:"dataset"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/mercury/config.yaml"),
			"/etc/mercury/config.yaml",
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

	mergeWithEnv(&config)
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
	if config.Embedding.Backend == "" {
		config.Embedding.Backend = "ollama"
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}
	if config.Embedding.Dimension == 0 {
		config.Embedding.Dimension = 768
	}
	if config.Embedding.RateLimit == 0 {
		config.Embedding.RateLimit = 10
	}

	if config.Database.Backend == "" {
		if config.Database.URL != "" {
			config.Database.Backend = "pgvector"
		} else {
			config.Database.Backend = "memory"
		}
	}
	if config.Database.TablePrefix == "" {
		config.Database.TablePrefix = "mercury_"
	}

	if config.Chunker.Delimiter == "" {
		config.Chunker.Delimiter = "."
	}

	if config.Search.Results == 0 {
		config.Search.Results = 5
	}
	if config.Search.EmbedTimeoutSeconds == 0 {
		config.Search.EmbedTimeoutSeconds = 10
	}

	if config.Server.Port == "" {
		config.Server.Port = "8000"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if file := os.Getenv("MERCURY_FILE"); file != "" {
		config.Dataset.File = file
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
