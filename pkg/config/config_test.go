package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tripkit.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if cfg.LLM.Provider != "gemini" {
					t.Errorf("expected default LLM provider 'gemini', got '%s'", cfg.LLM.Provider)
				}
				if cfg.Conversation.MaxExchanges != 7 {
					t.Errorf("expected MaxExchanges default 7, got %d", cfg.Conversation.MaxExchanges)
				}
				if cfg.Image.Retries != 3 {
					t.Errorf("expected image retries default 3, got %d", cfg.Image.Retries)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "provider: gemini") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "max_exchanges: 7") {
					t.Error("config file missing max_exchanges default")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				// Pre-create file with custom value
				err := os.WriteFile(configPath, []byte("llm:\n  model: gemini-2.5-pro\nrecommend:\n  top_k: 50\n  min_spots: 8\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.LLM.Model != "gemini-2.5-pro" {
					t.Errorf("expected model 'gemini-2.5-pro', got '%s'", cfg.LLM.Model)
				}
				if cfg.Recommend.TopK != 50 {
					t.Errorf("expected TopK 50, got %d", cfg.Recommend.TopK)
				}
				if cfg.Recommend.MinSpots != 8 {
					t.Errorf("expected MinSpots 8, got %d", cfg.Recommend.MinSpots)
				}
				// Untouched sections keep defaults
				if cfg.Pipeline.ReworkBudget != 2 {
					t.Errorf("expected ReworkBudget default 2, got %d", cfg.Pipeline.ReworkBudget)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "model: gemini-2.5-pro") {
					t.Error("config file should persist custom value")
				}
			},
		},
		{
			name: "LLM_Env_Fallback",
			setup: func() {
				t.Setenv("GEMINI_API_KEY", "env_secret_key")
				err := os.WriteFile(configPath, []byte("llm:\n  key: \"\"\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.LLM.Key != "env_secret_key" {
					t.Errorf("expected Key 'env_secret_key', got '%s'", cfg.LLM.Key)
				}
			},
			checkFile: func(t *testing.T) {
				// Env overrides should NOT be saved to disk
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "env_secret_key") {
					t.Error("environment secret should NOT be persisted to config file")
				}
			},
		},
		{
			name: "Search_Env_Fallback",
			setup: func() {
				t.Setenv("TAVILY_API_KEY", "tavily_secret")
				err := os.WriteFile(configPath, []byte("search:\n  provider: tavily\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Search.Key != "tavily_secret" {
					t.Errorf("expected Search Key 'tavily_secret', got '%s'", cfg.Search.Key)
				}
			},
			checkFile: func(t *testing.T) {},
		},
		{
			name: "File_Key_Wins_Over_Env",
			setup: func() {
				t.Setenv("GEMINI_API_KEY", "env_secret_key")
				err := os.WriteFile(configPath, []byte("llm:\n  key: file_key\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.LLM.Key != "file_key" {
					t.Errorf("expected Key 'file_key', got '%s'", cfg.LLM.Key)
				}
			},
			checkFile: func(t *testing.T) {},
		},
		{
			name: "Invalid_YAML",
			setup: func() {
				err := os.WriteFile(configPath, []byte("recommend: [not a map]"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if err == nil {
				tt.validate(t, cfg)
				tt.checkFile(t)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "default_config.yaml")

	err := GenerateDefault(configPath)
	if err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("GenerateDefault() did not create file")
	}

	// Running again should not fail
	err = GenerateDefault(configPath)
	if err != nil {
		t.Errorf("GenerateDefault() error on second run = %v", err)
	}
}
