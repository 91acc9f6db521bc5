package ops

import (
	"os"

	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML config layout. Credentials never live in the
// file; they are pulled from the environment at load time.
type FileConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Sources   SourcesConfig   `yaml:"sources"`
	Assistant AssistantConfig `yaml:"assistant"`
	Profile   ProfileConfig   `yaml:"profile"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SourcesConfig describes the realtime feeds and the symbols subscribed at
// startup.
type SourcesConfig struct {
	BinanceURL string   `yaml:"binanceUrl"`
	UpbitURL   string   `yaml:"upbitUrl"`
	Symbols    []string `yaml:"symbols"`
}

// AssistantConfig selects the chat model.
type AssistantConfig struct {
	Model string `yaml:"model"`
}

// ProfileConfig captures optional continuous profiling.
type ProfileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Server    ServerConfig
	Sources   SourcesConfig
	Assistant AssistantConfig
	Profile   ProfileConfig

	// environment-sourced secrets
	AnthropicAPIKey string
	SearchAPIKey    string
	ArchiveDSN      string
}

const (
	defaultAddr  = "127.0.0.1:8600"
	defaultModel = "claude-sonnet-4-20250514"
)

// Load reads the YAML config and resolves secrets from the environment. A
// missing file falls back to defaults; a malformed one is an error.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "parse config "+path)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return Loaded{}, errors.Wrap(err, "read config "+path)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = defaultModel
	}
	if len(cfg.Sources.Symbols) == 0 {
		cfg.Sources.Symbols = []string{"BTC", "ETH"}
	}

	return Loaded{
		Server:          cfg.Server,
		Sources:         cfg.Sources,
		Assistant:       cfg.Assistant,
		Profile:         cfg.Profile,
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		SearchAPIKey:    os.Getenv("SEARCH_API_KEY"),
		ArchiveDSN:      os.Getenv("ARCHIVE_DSN"),
	}, nil
}
