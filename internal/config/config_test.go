package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
output_dir: /tmp/videos
default_voice: Brian
limits:
  openrouter:
    requests_per_second: 5
    burst: 10
    max_concurrent: 16
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "/tmp/videos" {
		t.Fatalf("output_dir = %q", cfg.OutputDir)
	}
	if cfg.DefaultVoice != "Brian" {
		t.Fatalf("default_voice = %q", cfg.DefaultVoice)
	}
	if got := cfg.Limits["openrouter"].MaxConcurrent; got != 16 {
		t.Fatalf("openrouter max_concurrent = %d", got)
	}
	// Untouched fields keep their defaults.
	if cfg.FFmpegPath != "ffmpeg" {
		t.Fatalf("ffmpeg_path = %q", cfg.FFmpegPath)
	}
}

func TestLoadReadsCredentialsFromEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("ELEVENLABS_API_KEY", "el-key")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Creds.OpenRouter != "or-key" || cfg.Creds.ElevenLabs != "el-key" {
		t.Fatalf("credentials not read: %+v", cfg.Creds)
	}
}

func TestValidateProviders(t *testing.T) {
	cfg := Default()
	cfg.Creds.OpenRouter = "set"

	if err := cfg.ValidateProviders("openrouter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.ValidateProviders("elevenlabs"); err == nil {
		t.Fatal("missing key passed validation")
	}
	if err := cfg.ValidateProviders("not-a-provider"); err == nil {
		t.Fatal("unknown provider passed validation")
	}
	if err := cfg.ValidateProviders(""); err != nil {
		t.Fatalf("empty provider should be skipped: %v", err)
	}
}

func TestValidateRejectsBadLimit(t *testing.T) {
	cfg := Default()
	cfg.Limits["openai"] = ProviderLimit{RequestsPerSecond: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero rate passed validation")
	}
}

func TestLimiterPoolCoversConfiguredProviders(t *testing.T) {
	pool := Default().LimiterPool()
	release, err := pool.Acquire(context.Background(), "elevenlabs")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
}
