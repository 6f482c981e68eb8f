// Package profile holds the runtime configuration.
package profile

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Profile is the resolved configuration for one process.
type Profile struct {
	// Mode is "prod" or "dev".
	Mode string
	// Addr and Port are the HTTP bind address.
	Addr string
	Port int
	// Data is the directory for local state (sqlite file, vector index).
	Data string

	// Driver is "sqlite", "postgres", or "mysql"; DSN is driver-specific.
	Driver string
	DSN    string

	// Generation backend (any OpenAI-compatible endpoint).
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Embedding endpoint (Ollama) and model for the semantic index.
	OllamaURL  string
	EmbedModel string

	// Identity provider.
	KeycloakURL   string
	KeycloakRealm string
	// AdminRole guards the database rebuild operation.
	AdminRole string

	// CorpusDir holds the rulebook documents the index is built from.
	CorpusDir string

	// Evidence tuning.
	SemanticLimit    int
	WebResults       int
	SourceTimeoutSec int
}

// Load reads the profile from the environment (prefix GRIMOIRE_).
func Load() (*Profile, error) {
	v := viper.New()
	v.SetEnvPrefix("grimoire")
	v.AutomaticEnv()

	v.SetDefault("mode", "prod")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8080)
	v.SetDefault("data", "./data")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("dsn", "")
	v.SetDefault("llm_base_url", "http://localhost:11434/v1")
	v.SetDefault("llm_api_key", "ollama")
	v.SetDefault("llm_model", "qwen3:1.7b")
	v.SetDefault("ollama_url", "http://localhost:11434/api")
	v.SetDefault("embed_model", "nomic-embed-text")
	v.SetDefault("keycloak_url", "http://localhost:8081")
	v.SetDefault("keycloak_realm", "grimoire")
	v.SetDefault("admin_role", "grimoire-admin")
	v.SetDefault("corpus_dir", "./corpus")
	v.SetDefault("semantic_limit", 10)
	v.SetDefault("web_results", 1)
	v.SetDefault("source_timeout_sec", 30)

	p := &Profile{
		Mode:             v.GetString("mode"),
		Addr:             v.GetString("addr"),
		Port:             v.GetInt("port"),
		Data:             v.GetString("data"),
		Driver:           v.GetString("driver"),
		DSN:              v.GetString("dsn"),
		LLMBaseURL:       v.GetString("llm_base_url"),
		LLMAPIKey:        v.GetString("llm_api_key"),
		LLMModel:         v.GetString("llm_model"),
		OllamaURL:        v.GetString("ollama_url"),
		EmbedModel:       v.GetString("embed_model"),
		KeycloakURL:      v.GetString("keycloak_url"),
		KeycloakRealm:    v.GetString("keycloak_realm"),
		AdminRole:        v.GetString("admin_role"),
		CorpusDir:        v.GetString("corpus_dir"),
		SemanticLimit:    v.GetInt("semantic_limit"),
		WebResults:       v.GetInt("web_results"),
		SourceTimeoutSec: v.GetInt("source_timeout_sec"),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects configurations the process cannot start with.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		return fmt.Errorf("unknown mode %q", p.Mode)
	}
	switch strings.ToLower(p.Driver) {
	case "sqlite":
	case "postgres", "mysql":
		if p.DSN == "" {
			return fmt.Errorf("driver %q requires a dsn", p.Driver)
		}
	default:
		return fmt.Errorf("unknown database driver %q", p.Driver)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	return nil
}

// ListenAddr returns the host:port the server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}
