package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
}

type StoreConfig struct {
	Backend  string `toml:"backend"` // "memgraph" or "sqlite"
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Path     string `toml:"path"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

// EngineConfig carries every numeric tuning constant of the pipeline. None
// of these are hard-coded in the core packages.
type EngineConfig struct {
	TokenBudget         int     `toml:"token_budget"`
	RelevanceThreshold  float64 `toml:"relevance_threshold"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	DecayHours          float64 `toml:"decay_hours"`
	ConfidenceWeight    float64 `toml:"confidence_weight"`
	RecencyWeight       float64 `toml:"recency_weight"`
	SimilarityWeight    float64 `toml:"similarity_weight"`
	MaxEntities         int     `toml:"max_entities"`
	MaxRelationships    int     `toml:"max_relationships"`
	MaxExtracted        int     `toml:"max_extracted"`
	CleanupChance       float64 `toml:"cleanup_chance"`
	MaxAgeDays          int     `toml:"max_age_days"`
	MinConfidenceFloor  float64 `toml:"min_confidence_floor"`
	MinStrengthFloor    float64 `toml:"min_strength_floor"`
}

type CacheConfig struct {
	MaxEntities      int `toml:"max_entities"`
	MaxRelationships int `toml:"max_relationships"`
}

type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	LLM    LLMConfig    `toml:"llm"`
	Engine EngineConfig `toml:"engine"`
	Cache  CacheConfig  `toml:"cache"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "kontext.db",
			URI:     "bolt://localhost:7687",
		},
		Engine: EngineConfig{
			TokenBudget:         1000,
			RelevanceThreshold:  0.6,
			SimilarityThreshold: 0.8,
			DecayHours:          72,
			ConfidenceWeight:    0.4,
			RecencyWeight:       0.3,
			SimilarityWeight:    0.3,
			MaxEntities:         10,
			MaxRelationships:    8,
			MaxExtracted:        15,
			CleanupChance:       0.02,
			MaxAgeDays:          30,
			MinConfidenceFloor:  0.3,
			MinStrengthFloor:    0.3,
		},
		Cache: CacheConfig{MaxEntities: 100, MaxRelationships: 50},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg, nil
}

// LoadWithEnv loads the file at path, falling back to defaults when the file
// is missing, and applies environment overrides on top.
func LoadWithEnv(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = Default()
	}
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Store.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Store.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Store.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.TokenBudget = n
		}
	}
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	w := c.Engine.ConfidenceWeight + c.Engine.RecencyWeight + c.Engine.SimilarityWeight
	if w < 0.999 || w > 1.001 {
		return fmt.Errorf("relevance weights must sum to 1.0, got %.3f", w)
	}
	if c.Engine.TokenBudget < 0 {
		return fmt.Errorf("token_budget must be >= 0")
	}
	if c.Engine.DecayHours <= 0 {
		return fmt.Errorf("decay_hours must be > 0")
	}
	switch c.Store.Backend {
	case "memgraph", "sqlite":
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}
	return nil
}
