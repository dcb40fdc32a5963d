package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request      RequestConfig      `yaml:"request"`
	Log          LogConfig          `yaml:"log"`
	DB           DBConfig           `yaml:"db"`
	Server       ServerConfig       `yaml:"server"`
	LLM          LLMConfig          `yaml:"llm"`
	Search       SearchConfig       `yaml:"search"`
	Image        ImageConfig        `yaml:"image"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Conversation ConversationConfig `yaml:"conversation"`
	Recommend    RecommendConfig    `yaml:"recommend"`
	QA           QAConfig           `yaml:"qa"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LLMConfig holds settings for the Large Language Model provider.
type LLMConfig struct {
	Provider   string            `yaml:"provider"`    // "gemini", "mock"
	Model      string            `yaml:"model"`       // text model, e.g. "gemini-2.5-flash"
	ImageModel string            `yaml:"image_model"` // image model, e.g. "imagen-4.0-generate-001"
	Key        string            `yaml:"key"`         // API Key
	Profiles   map[string]string `yaml:"profiles"`    // Map of intent -> model
}

// SearchConfig holds settings for the web search provider used during
// content enrichment.
type SearchConfig struct {
	Provider   string `yaml:"provider"` // "tavily", "mock", "none"
	Endpoint   string `yaml:"endpoint"`
	Key        string `yaml:"key"`
	MaxResults int    `yaml:"max_results"`
}

// ImageConfig holds settings for stylized image generation.
type ImageConfig struct {
	AssetDir string `yaml:"asset_dir"` // where generated images are written
	Size     string `yaml:"size"`      // "1024x1024", "1792x1024", "1024x1792"
	Quality  string `yaml:"quality"`   // "standard", "hd"
	Style    string `yaml:"style"`     // "vivid", "natural"
	MinEdge  int    `yaml:"min_edge"`  // minimum acceptable edge in pixels
	Retries  int    `yaml:"retries"`   // generation attempts per session
}

// PipelineConfig holds supervisor budgets and session lifecycle settings.
type PipelineConfig struct {
	StageRetries int      `yaml:"stage_retries"` // retries for non-image stages
	ReworkBudget int      `yaml:"rework_budget"` // QA-triggered rework cycles
	SessionTTL   Duration `yaml:"session_ttl"`
}

// ConversationConfig holds settings for preference elicitation.
type ConversationConfig struct {
	MaxExchanges        int     `yaml:"max_exchanges"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// RecommendConfig holds settings for destination scoring.
type RecommendConfig struct {
	TopK             int     `yaml:"top_k"`     // candidate pool size
	Results          int     `yaml:"results"`   // recommendations returned
	MinSpots         int     `yaml:"min_spots"` // hidden spots per destination
	VibeWeight       float64 `yaml:"vibe_weight"`
	PhotogenicWeight float64 `yaml:"photogenic_weight"`
}

// QAConfig holds settings for the quality gate.
type QAConfig struct {
	ApproveThreshold float64 `yaml:"approve_threshold"` // minimum category score
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	LLM      LogSettings `yaml:"llm"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 5,
			Timeout: Duration(300 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			LLM: LogSettings{
				Path:  "./logs/llm.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/tripkit.db",
		},
		Server: ServerConfig{
			Address: "localhost:1947",
		},
		LLM: LLMConfig{
			Provider:   "gemini",
			Model:      "gemini-2.5-flash",
			ImageModel: "imagen-4.0-generate-001",
			Key:        "",
			Profiles: map[string]string{
				"conversation": "gemini-2.5-flash-lite",
				"extraction":   "gemini-2.5-flash-lite",
				"justify":      "gemini-2.5-flash",
				"enrichment":   "gemini-2.5-flash",
				"moderation":   "gemini-2.5-flash-lite",
			},
		},
		Search: SearchConfig{
			Provider:   "tavily",
			Endpoint:   "https://api.tavily.com/search",
			Key:        "",
			MaxResults: 5,
		},
		Image: ImageConfig{
			AssetDir: "./data/images",
			Size:     "1024x1024",
			Quality:  "standard",
			Style:    "vivid",
			MinEdge:  1024,
			Retries:  3,
		},
		Pipeline: PipelineConfig{
			StageRetries: 1,
			ReworkBudget: 2,
			SessionTTL:   Duration(24 * time.Hour),
		},
		Conversation: ConversationConfig{
			MaxExchanges:        7,
			ConfidenceThreshold: 0.8,
		},
		Recommend: RecommendConfig{
			TopK:             20,
			Results:          3,
			MinSpots:         5,
			VibeWeight:       0.7,
			PhotogenicWeight: 0.3,
		},
		QA: QAConfig{
			ApproveThreshold: 0.75,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read existing file if it exists
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		applyEnvFallback(cfg)

		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnvFallback(cfg)

	return cfg, nil
}

// applyEnvFallback fills API keys from the environment when the file left
// them empty. Nothing is written back to disk.
func applyEnvFallback(cfg *Config) {
	if cfg.LLM.Key == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.LLM.Key = key
		} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			cfg.LLM.Key = key
		}
	}
	if cfg.Search.Key == "" {
		if key := os.Getenv("TAVILY_API_KEY"); key != "" {
			cfg.Search.Key = key
		}
	}
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# TripKit Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	// Inject comments for Enum fields
	// We use regex to find the keys with indentation to ensure we place comments correctly.

	reSize := regexp.MustCompile(`(?m)^(\s+)size:`)
	data = reSize.ReplaceAll(data, []byte("${1}# Options: 1024x1024, 1792x1024, 1024x1792\n${1}size:"))

	reQuality := regexp.MustCompile(`(?m)^(\s+)quality:`)
	data = reQuality.ReplaceAll(data, []byte("${1}# Options: standard, hd\n${1}quality:"))

	reStyle := regexp.MustCompile(`(?m)^(\s+)style:`)
	data = reStyle.ReplaceAll(data, []byte("${1}# Options: vivid, natural\n${1}style:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write default config
	return Save(path, DefaultConfig())
}
