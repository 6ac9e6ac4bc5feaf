package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/align"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/flows"
	"github.com/reelforge/reelforge/internal/history"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/ports/adapters/elevenlabs"
	"github.com/reelforge/reelforge/internal/ports/adapters/ffmpeg"
	"github.com/reelforge/reelforge/internal/ports/adapters/flux"
	"github.com/reelforge/reelforge/internal/ports/adapters/googleimg"
	"github.com/reelforge/reelforge/internal/ports/adapters/openaiimg"
	"github.com/reelforge/reelforge/internal/ports/adapters/openrouter"
	"github.com/reelforge/reelforge/internal/ports/adapters/tavily"
	"github.com/reelforge/reelforge/internal/ports/adapters/videogen"
	"github.com/reelforge/reelforge/internal/research"
	"github.com/reelforge/reelforge/internal/types"
)

// buildDeps validates the run's provider choices and assembles the flow
// dependencies. The limiter pool is built here, once per run.
func buildDeps(cfg *config.Config, run types.RunConfig, runDir string, log zerolog.Logger) (flows.Deps, error) {
	needed := []string{"openrouter", "elevenlabs", run.ImageProvider}
	if run.VideoProvider != "" {
		needed = append(needed, run.VideoProvider)
	}
	if run.EnableResearch {
		needed = append(needed, "tavily")
	}
	if err := cfg.ValidateProviders(needed...); err != nil {
		return flows.Deps{}, err
	}

	pool := cfg.LimiterPool()
	gen := openrouter.New(cfg.Creds.OpenRouter, cfg.DefaultTextModel, pool, log)

	var images ports.ImageProvider
	switch run.ImageProvider {
	case "google":
		images = googleimg.New(cfg.Creds.Google, pool, log)
	case "flux":
		images = flux.New(cfg.Creds.Flux, pool, log)
	case "openai", "":
		images = openaiimg.New(cfg.Creds.OpenAI, pool, log)
	default:
		return flows.Deps{}, fmt.Errorf("unknown image provider %q", run.ImageProvider)
	}

	var video ports.VideoProvider
	if run.VideoProvider != "" {
		var err error
		video, err = videogen.New(run.VideoProvider, cfg.KeyFor(run.VideoProvider), pool, log)
		if err != nil {
			return flows.Deps{}, err
		}
	}

	var researcher *research.Researcher
	if run.EnableResearch {
		researcher = research.New(tavily.New(cfg.Creds.Tavily, pool, log), gen, log)
	}

	runner := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, log)
	return flows.Deps{
		Gen:       gen,
		TTS:       elevenlabs.New(cfg.Creds.ElevenLabs, pool, log),
		Images:    images,
		Video:     video,
		Renderer:  runner,
		Assembler: runner,
		History:   history.New(cfg.HistoryPath),
		Research:  researcher,
		Aligner:   align.New(log),
		Log:       log,
		RunDir:    runDir,
	}, nil
}
