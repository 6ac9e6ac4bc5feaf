// Package config loads run configuration from an optional YAML file and
// credentials from the environment. A missing config file falls back to
// defaults; missing credentials only fail validation for the providers a
// run actually selects.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/reelforge/reelforge/internal/limiter"
)

// Credentials holds the API keys read from the environment.
type Credentials struct {
	OpenRouter string
	OpenAI     string
	Google     string
	Flux       string
	ElevenLabs string
	Runway     string
	Luma       string
	Kling      string
	Tavily     string
}

// ProviderLimit mirrors limiter.Limit in YAML form.
type ProviderLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxConcurrent     int     `yaml:"max_concurrent"`
}

// Config is the full application configuration.
type Config struct {
	OutputDir   string                   `yaml:"output_dir"`
	HistoryPath string                   `yaml:"history_path"`
	FFmpegPath  string                   `yaml:"ffmpeg_path"`
	FFprobePath string                   `yaml:"ffprobe_path"`
	Limits      map[string]ProviderLimit `yaml:"limits"`

	DefaultVoice      string `yaml:"default_voice"`
	DefaultVoiceModel string `yaml:"default_voice_model"`
	DefaultTextModel  string `yaml:"default_text_model"`

	Creds Credentials `yaml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		OutputDir:         "output",
		HistoryPath:       "output/history.jsonl",
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		DefaultVoice:      "Rachel",
		DefaultVoiceModel: "eleven_multilingual_v2",
		DefaultTextModel:  "anthropic/claude-sonnet-4",
		Limits: map[string]ProviderLimit{
			"openrouter": {RequestsPerSecond: 2, Burst: 4, MaxConcurrent: 8},
			"openai":     {RequestsPerSecond: 1, Burst: 2, MaxConcurrent: 4},
			"google":     {RequestsPerSecond: 1, Burst: 2, MaxConcurrent: 4},
			"flux":       {RequestsPerSecond: 0.5, Burst: 1, MaxConcurrent: 2},
			"elevenlabs": {RequestsPerSecond: 1, Burst: 2, MaxConcurrent: 2},
			"runway":     {RequestsPerSecond: 0.2, Burst: 1, MaxConcurrent: 2},
			"luma":       {RequestsPerSecond: 0.2, Burst: 1, MaxConcurrent: 2},
			"kling":      {RequestsPerSecond: 0.2, Burst: 1, MaxConcurrent: 2},
			"tavily":     {RequestsPerSecond: 2, Burst: 4, MaxConcurrent: 4},
		},
	}
}

// Load reads the YAML file at path (optional, "" skips it), overlays the
// defaults, and pulls credentials from the environment. A .env file in
// the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.Creds = Credentials{
		OpenRouter: os.Getenv("OPENROUTER_API_KEY"),
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		Google:     os.Getenv("GOOGLE_API_KEY"),
		Flux:       os.Getenv("BFL_API_KEY"),
		ElevenLabs: os.Getenv("ELEVENLABS_API_KEY"),
		Runway:     os.Getenv("RUNWAY_API_KEY"),
		Luma:       os.Getenv("LUMA_API_KEY"),
		Kling:      os.Getenv("KLING_API_KEY"),
		Tavily:     os.Getenv("TAVILY_API_KEY"),
	}
	return cfg, nil
}

// Validate checks structural fields. Provider keys are checked per run
// by ValidateProviders once the run's provider choices are known.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must be set")
	}
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return fmt.Errorf("ffmpeg_path and ffprobe_path must be set")
	}
	for name, l := range c.Limits {
		if l.RequestsPerSecond <= 0 {
			return fmt.Errorf("limits.%s.requests_per_second must be positive", name)
		}
	}
	return nil
}

// ValidateProviders checks that every provider the run will touch has a
// credential.
func (c *Config) ValidateProviders(names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		key, known := c.keyFor(name)
		if !known {
			return fmt.Errorf("unknown provider %q", name)
		}
		if key == "" {
			return fmt.Errorf("provider %q selected but its API key is not set", name)
		}
	}
	return nil
}

// KeyFor returns the credential for a provider name, empty when unset
// or unknown.
func (c *Config) KeyFor(name string) string {
	key, _ := c.keyFor(name)
	return key
}

func (c *Config) keyFor(name string) (string, bool) {
	switch name {
	case "openrouter":
		return c.Creds.OpenRouter, true
	case "openai":
		return c.Creds.OpenAI, true
	case "google":
		return c.Creds.Google, true
	case "flux":
		return c.Creds.Flux, true
	case "elevenlabs":
		return c.Creds.ElevenLabs, true
	case "runway":
		return c.Creds.Runway, true
	case "luma":
		return c.Creds.Luma, true
	case "kling":
		return c.Creds.Kling, true
	case "tavily":
		return c.Creds.Tavily, true
	}
	return "", false
}

// LimiterPool builds the per-run provider pool from the configured
// limits.
func (c *Config) LimiterPool() *limiter.Pool {
	limits := make(map[string]limiter.Limit, len(c.Limits))
	for name, l := range c.Limits {
		limits[name] = limiter.Limit{
			RequestsPerSecond: l.RequestsPerSecond,
			Burst:             l.Burst,
			MaxConcurrent:     l.MaxConcurrent,
		}
	}
	return limiter.NewPool(limits)
}
