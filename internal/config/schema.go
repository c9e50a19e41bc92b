// Package config defines the configuration schema for pantrychef.
//
// The file lives at ~/.pantrychef/config.json and uses camelCase keys.
// Environment variables named in `env` tags override file values.
package config

import (
	"os"
	"path/filepath"

	"github.com/crystaldolphin/pantrychef/internal/config/agent"
	"github.com/crystaldolphin/pantrychef/internal/config/provider"
	servercfg "github.com/crystaldolphin/pantrychef/internal/config/server"
	"github.com/crystaldolphin/pantrychef/internal/config/store"
)

type LogConfig struct {
	Level  string `json:"level" env:"PANTRYCHEF_LOG_LEVEL"`   // debug | info | warn | error
	Format string `json:"format" env:"PANTRYCHEF_LOG_FORMAT"` // text | json
}

type Config struct {
	Agent     agent.AgentConfig        `json:"agent"`
	Providers provider.ProvidersConfig `json:"providers"`
	Store     store.StoreConfig        `json:"store"`
	Vector    store.VectorConfig       `json:"vector"`
	Firebase  store.FirebaseConfig     `json:"firebase"`
	Server    servercfg.ServerConfig   `json:"server"`
	Indexer   store.IndexerConfig      `json:"indexer"`
	Log       LogConfig                `json:"log"`
}

func DefaultConfig() Config {
	return Config{
		Agent:   agent.DefaultAgentConfig(),
		Store:   store.DefaultStoreConfig(),
		Vector:  store.DefaultVectorConfig(),
		Server:  servercfg.DefaultServerConfig(),
		Indexer: store.DefaultIndexerConfig(),
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// SQLitePath returns the sqlite file, defaulting to DataDir()/recipes.db.
func (c *Config) SQLitePath() string {
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	return filepath.Join(DataDir(), "recipes.db")
}

// SessionsDir is where `pantrychef chat` keeps saved conversations.
func (c *Config) SessionsDir() string { return filepath.Join(DataDir(), "sessions") }

// JobsPath is where the background scheduler records job runs.
func (c *Config) JobsPath() string { return filepath.Join(DataDir(), "cron", "jobs.json") }

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
