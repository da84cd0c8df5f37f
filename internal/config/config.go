package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the copilot API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Database   DatabaseConfig   `yaml:"database"`
	History    HistoryConfig    `yaml:"history"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ArtifactsConfig points at the two index files built by the offline job.
type ArtifactsConfig struct {
	VectorIndex     string `yaml:"vector_index"`
	LexicalSnapshot string `yaml:"lexical_snapshot"`
}

// RetrievalConfig holds the fusion and relevance-gate tunables. The defaults
// are calibrated against each other: changing the damping or alpha invalidates
// the relevance threshold.
type RetrievalConfig struct {
	TopK               int     `yaml:"top_k"`
	Alpha              float64 `yaml:"alpha"`
	RRFDamping         int     `yaml:"rrf_damping"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
}

// EmbeddingConfig holds query-embedding provider settings. The model and
// dimensions must match the transform that built the vector artifact.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// GenerationConfig holds text-generation backend settings.
type GenerationConfig struct {
	Provider      string  `yaml:"provider"` // ollama, openai (default: ollama)
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Temperature   float64 `yaml:"temperature"`
	ContextWindow int     `yaml:"context_window"`
	TimeoutSec    int     `yaml:"timeout_sec"`
}

// DatabaseConfig holds the optional Redis connection for feedback, analytics
// counters and chat history. Empty addrs disables all three.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// HistoryConfig bounds per-user chat history.
type HistoryConfig struct {
	MaxMessages int `yaml:"max_messages"`
	TTLHours    int `yaml:"ttl_hours"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// The query route streams for the full generation window.
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Artifacts.VectorIndex == "" {
		c.Artifacts.VectorIndex = filepath.Join("data", "vector_index.json")
	}
	if c.Artifacts.LexicalSnapshot == "" {
		c.Artifacts.LexicalSnapshot = filepath.Join("data", "lexical_snapshot.json")
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 6
	}
	if c.Retrieval.Alpha == 0 {
		c.Retrieval.Alpha = 0.75
	}
	if c.Retrieval.RRFDamping <= 0 {
		c.Retrieval.RRFDamping = 60
	}
	if c.Retrieval.RelevanceThreshold == 0 {
		c.Retrieval.RelevanceThreshold = 0.008
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "ollama"
	}
	if c.Generation.BaseURL == "" && c.Generation.Provider == "ollama" {
		c.Generation.BaseURL = "http://localhost:11434"
	}
	if c.Generation.Model == "" && c.Generation.Provider == "ollama" {
		c.Generation.Model = "gemma3:4b"
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = 0.2
	}
	if c.Generation.ContextWindow <= 0 {
		c.Generation.ContextWindow = 4096
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 120
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "copilot:"
	}
	if c.History.MaxMessages <= 0 {
		c.History.MaxMessages = 50
	}
	if c.History.TTLHours <= 0 {
		c.History.TTLHours = 7 * 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Retrieval.Alpha < 0 || c.Retrieval.Alpha > 1 {
		return fmt.Errorf("retrieval.alpha must be in [0, 1], got %v", c.Retrieval.Alpha)
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	switch c.Generation.Provider {
	case "ollama":
		if c.Generation.BaseURL == "" {
			return fmt.Errorf("generation.base_url is required for the ollama provider")
		}
	case "openai":
		if c.Generation.Model == "" {
			return fmt.Errorf("generation.model is required for the openai provider")
		}
	default:
		return fmt.Errorf("generation.provider must be \"ollama\" or \"openai\", got %q", c.Generation.Provider)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
