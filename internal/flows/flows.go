// Package flows contains the orchestrators that turn a run config into
// a finished video. Each flow is a pipeline of named steps over its own
// state type; all external work goes through the ports.
package flows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/align"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/research"
	"github.com/reelforge/reelforge/internal/types"
)

// Fan-out widths. The provider pool does the real pacing; these only
// bound how many goroutines a stage spawns.
const (
	imageConcurrency   = 8
	clipConcurrency    = 4
	sectionConcurrency = 4
)

// Deps wires a flow to the outside world. Video and Research may be nil
// when the run does not use them.
type Deps struct {
	Gen       ports.StructuredGenerator
	TTS       ports.SpeechSynthesizer
	Images    ports.ImageProvider
	Video     ports.VideoProvider
	Renderer  ports.ClipRenderer
	Assembler ports.Assembler
	History   ports.HistoryStore
	Research  *research.Researcher

	Aligner *align.Aligner
	Log     zerolog.Logger

	// Progress, when set, is called before each pipeline step runs.
	Progress func(step string, index, total int)

	// RunDir is the per-run output directory; checkpoints go to its
	// checkpoints/ subdirectory.
	RunDir string
}

func (d Deps) checkpointer() pipeline.Checkpointer {
	return pipeline.NewJSONCheckpointer(filepath.Join(d.RunDir, "checkpoints"), d.Log)
}

// runnerOpts is the runner configuration shared by every flow.
func runnerOpts[S any](d Deps) []pipeline.Option[S] {
	opts := []pipeline.Option[S]{pipeline.WithCheckpointer[S](d.checkpointer())}
	if d.Progress != nil {
		opts = append(opts, pipeline.WithProgress[S](d.Progress))
	}
	return opts
}

func (d Deps) ensureRunDir() error {
	return os.MkdirAll(d.RunDir, 0o755)
}

func (d Deps) path(name string) string {
	return filepath.Join(d.RunDir, name)
}

// NewRunDir builds a timestamped directory for one run under base.
func NewRunDir(base, flow string) string {
	return filepath.Join(base, fmt.Sprintf("%s_%s", flow, time.Now().Format("20060102_150405")))
}

// genJSON asks for a JSON completion and decodes it into T.
func genJSON[T any](ctx context.Context, gen ports.StructuredGenerator, req ports.GenRequest) (T, error) {
	var out T
	data, err := gen.GenerateJSON(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode model output: %w", err)
	}
	return out, nil
}

// recordRun appends the run to history. History failures are logged but
// never fail a run that already produced its video.
func (d Deps) recordRun(ctx context.Context, rec types.RunRecord) {
	if d.History == nil {
		return
	}
	if err := d.History.Append(ctx, rec); err != nil {
		d.Log.Warn().Err(err).Msg("run not recorded in history")
	}
}
