package flows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
	"github.com/reelforge/reelforge/internal/visuals"
)

// LongForm produces a multi-section video. Sections are scripted one
// after another so each picks up where the last left off, then produced
// concurrently since their media no longer depend on each other.
type LongForm struct {
	d Deps
}

func NewLongForm(d Deps) *LongForm {
	return &LongForm{d: d}
}

func (f *LongForm) Run(ctx context.Context, cfg types.RunConfig) (*types.LongFormState, error) {
	if err := f.d.ensureRunDir(); err != nil {
		return nil, err
	}
	state := &types.LongFormState{Config: cfg}
	runner := pipeline.NewRunner(f.d.Log, runnerOpts[types.LongFormState](f.d)...)
	err := runner.Run(ctx, state, []pipeline.Step[types.LongFormState]{
		{Name: "generate_goal", Fn: f.generateGoal},
		{Name: "plan_structure", Fn: f.planStructure},
		{Name: "write_sections", Fn: f.writeSections},
		{Name: "produce_sections", Fn: f.produceSections},
		{Name: "assemble_video", Fn: f.assembleVideo},
		{Name: "record_history", Fn: f.recordHistory},
	})
	return state, err
}

func (f *LongForm) generateGoal(ctx context.Context, s *types.LongFormState) error {
	out, err := genJSON[struct {
		Goal string `json:"goal"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: goalPrompt(s.Config)})
	if err != nil {
		return err
	}
	s.Goal = out.Goal
	return nil
}

func (f *LongForm) planStructure(ctx context.Context, s *types.LongFormState) error {
	out, err := genJSON[struct {
		Sections []types.SectionStructure `json:"sections"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: structurePrompt(s.Config, s.Goal)})
	if err != nil {
		return err
	}
	if len(out.Sections) == 0 {
		return fmt.Errorf("model returned no sections")
	}
	s.Sections = make([]types.SectionState, len(out.Sections))
	for i, st := range out.Sections {
		s.Sections[i] = types.SectionState{Structure: st}
	}
	return nil
}

// writeSections scripts each section with the tail of the previous one
// in hand, so transitions read as one continuous piece.
func (f *LongForm) writeSections(ctx context.Context, s *types.LongFormState) error {
	previousTail := ""
	for i := range s.Sections {
		out, err := genJSON[struct {
			Script string `json:"script"`
		}](ctx, f.d.Gen, ports.GenRequest{
			System: writerSystem,
			Prompt: sectionScriptPrompt(s.Config, s.Goal, s.Sections[i].Structure, previousTail),
		})
		if err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		s.Sections[i].Script = out.Script
		previousTail = scriptTail(out.Script)
	}
	var all []string
	for _, sec := range s.Sections {
		all = append(all, sec.Script)
	}
	s.FullScript = strings.Join(all, "\n\n")
	return nil
}

// produceSections runs the media pipeline for every section in
// parallel. Each section owns its slice slot and its own subdirectory.
func (f *LongForm) produceSections(ctx context.Context, s *types.LongFormState) error {
	return pipeline.ForEach(ctx, s.Sections, sectionConcurrency, func(ctx context.Context, i int, _ types.SectionState) error {
		if err := f.produceSection(ctx, s.Config, &s.Sections[i], i); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		return nil
	})
}

func (f *LongForm) produceSection(ctx context.Context, cfg types.RunConfig, sec *types.SectionState, idx int) error {
	dir := filepath.Join(f.d.RunDir, fmt.Sprintf("section_%02d", idx))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	secDeps := f.d
	secDeps.RunDir = dir

	out, err := genJSON[struct {
		Segments []string `json:"segments"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: segmentPrompt(sec.Script)})
	if err != nil {
		return err
	}
	if len(out.Segments) == 0 {
		return fmt.Errorf("model returned no segments")
	}
	sec.Segments = out.Segments

	sec.TTSScript = sec.Script
	res, err := f.d.TTS.Synthesize(ctx, ports.SpeechRequest{
		Text:    sec.TTSScript,
		Voice:   cfg.VoiceActor,
		Model:   cfg.VoiceModel,
		OutPath: filepath.Join(dir, "narration.mp3"),
	})
	if err != nil {
		return err
	}
	sec.AudioPath = res.AudioPath
	sec.WordAlignments = res.Words

	sec.SegmentTimings = f.d.Aligner.Segments(sec.WordAlignments, sec.Segments)
	sec.VisualPlans = visuals.Plan(sec.SegmentTimings, cfg)

	if err := describeImages(ctx, secDeps, cfg, sec.Segments, sec.VisualPlans); err != nil {
		return err
	}
	if err := generateImages(ctx, secDeps, cfg, sec.VisualPlans, dir); err != nil {
		return err
	}
	clips, err := renderSegmentClips(ctx, secDeps, cfg, sec.VisualPlans, dir)
	if err != nil {
		return err
	}
	sec.ClipPaths = clips

	joined, err := f.d.Assembler.Concat(ctx, clips, filepath.Join(dir, "section_silent.mp4"))
	if err != nil {
		return err
	}
	muxed, err := f.d.Assembler.Mux(ctx, joined, sec.AudioPath, filepath.Join(dir, "section.mp4"))
	if err != nil {
		return err
	}
	sec.SectionVideoPath = muxed
	return nil
}

func (f *LongForm) assembleVideo(ctx context.Context, s *types.LongFormState) error {
	videos := make([]string, len(s.Sections))
	for i, sec := range s.Sections {
		videos[i] = sec.SectionVideoPath
	}
	final, err := f.d.Assembler.Concat(ctx, videos, f.d.path("final.mp4"))
	if err != nil {
		return fmt.Errorf("concat sections: %w", err)
	}
	if s.Config.AddEndBuffer {
		final, err = f.d.Assembler.AppendStillBuffer(ctx, final, endBufferSeconds, f.d.path("final_buffered.mp4"))
		if err != nil {
			return fmt.Errorf("append end buffer: %w", err)
		}
	}
	s.FinalVideoPath = final
	return nil
}

func (f *LongForm) recordHistory(ctx context.Context, s *types.LongFormState) error {
	f.d.recordRun(ctx, types.RunRecord{
		Topic:         s.Config.Topic,
		VideoType:     "long",
		Duration:      s.Config.DurationSeconds,
		Orientation:   s.Config.Orientation,
		ModelProvider: s.Config.ModelProvider,
		ImageProvider: s.Config.ImageProvider,
		VoiceActor:    s.Config.VoiceActor,
		VideoPath:     s.FinalVideoPath,
		Script:        s.FullScript,
		Goal:          s.Goal,
	})
	return nil
}

// scriptTail returns the last couple of sentences of a script, enough
// context for the next section to continue from.
func scriptTail(script string) string {
	const maxTail = 300
	script = strings.TrimSpace(script)
	if len(script) <= maxTail {
		return script
	}
	cut := script[len(script)-maxTail:]
	if i := strings.IndexAny(cut, ".!?"); i >= 0 && i+1 < len(cut) {
		cut = cut[i+1:]
	}
	return strings.TrimSpace(cut)
}
