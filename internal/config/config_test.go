package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{
			BaseURL: "http://localhost:8081/v1",
			Model:   "all-minilm-l6-v2",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Retrieval.TopK != 6 {
		t.Errorf("expected TopK=6, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.Alpha != 0.75 {
		t.Errorf("expected Alpha=0.75, got %v", cfg.Retrieval.Alpha)
	}
	if cfg.Retrieval.RRFDamping != 60 {
		t.Errorf("expected RRFDamping=60, got %d", cfg.Retrieval.RRFDamping)
	}
	if cfg.Retrieval.RelevanceThreshold != 0.008 {
		t.Errorf("expected RelevanceThreshold=0.008, got %v", cfg.Retrieval.RelevanceThreshold)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("expected Dimensions=384, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Generation.Provider != "ollama" {
		t.Errorf("expected provider=ollama, got %q", cfg.Generation.Provider)
	}
	if cfg.Generation.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected ollama base url %q", cfg.Generation.BaseURL)
	}
	if cfg.Generation.TimeoutSec != 120 {
		t.Errorf("expected TimeoutSec=120, got %d", cfg.Generation.TimeoutSec)
	}
	if cfg.History.MaxMessages != 50 {
		t.Errorf("expected MaxMessages=50, got %d", cfg.History.MaxMessages)
	}
	if cfg.Database.KeyPrefix != "copilot:" {
		t.Errorf("expected key prefix copilot:, got %q", cfg.Database.KeyPrefix)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_AlphaOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.Alpha = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for alpha > 1")
	}
}

func TestValidate_MissingEmbeddingModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}
}

func TestValidate_UnknownGenerationProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Generation.Provider = "llamacpp"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}

	expected := `generation.provider must be "ollama" or "openai", got "llamacpp"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_OpenAIRequiresModel(t *testing.T) {
	cfg := validConfig()
	cfg.Generation.Provider = "openai"
	cfg.Generation.Model = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for openai provider without model")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("COPILOT_TEST_KEY", "secret")

	in := []byte("api_key: ${COPILOT_TEST_KEY}\nmodel: ${COPILOT_TEST_MODEL:-gemma3:4b}")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nmodel: gemma3:4b"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestGetEnv_Default(t *testing.T) {
	if err := os.Unsetenv("ENV"); err != nil {
		t.Fatal(err)
	}
	if env := GetEnv(); env != "local" {
		t.Errorf("expected local, got %q", env)
	}
}
