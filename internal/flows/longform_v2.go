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

// sectionWriter is the scripting strategy for a long-form v2 run. The
// sequential writer hands each section the tail of the previous one;
// the parallel writer scripts all sections at once and bridges them
// with connector sentences afterwards.
type sectionWriter interface {
	write(ctx context.Context, f *LongFormV2, s *types.LongFormV2State) error
}

// LongFormV2 adds research, per-section quality gates and a choice of
// scripting strategy to the long-form flow.
type LongFormV2 struct {
	d      Deps
	writer sectionWriter
}

func NewLongFormV2(d Deps, strategy string) *LongFormV2 {
	f := &LongFormV2{d: d}
	if strategy == "parallel" {
		f.writer = parallelWriter{}
	} else {
		f.writer = sequentialWriter{}
	}
	return f
}

func (f *LongFormV2) Run(ctx context.Context, cfg types.RunConfig) (*types.LongFormV2State, error) {
	if err := f.d.ensureRunDir(); err != nil {
		return nil, err
	}
	state := &types.LongFormV2State{Config: cfg}
	runner := pipeline.NewRunner(f.d.Log, runnerOpts[types.LongFormV2State](f.d)...)
	err := runner.Run(ctx, state, []pipeline.Step[types.LongFormV2State]{
		{Name: "research", Fn: f.research},
		{Name: "generate_goal", Fn: f.generateGoal},
		{Name: "define_style", Fn: f.defineStyle},
		{Name: "plan_structure", Fn: f.planStructure},
		{Name: "write_sections", Fn: f.writeSections},
		{Name: "produce_sections", Fn: f.produceSections},
		{Name: "assemble_video", Fn: f.assembleVideo},
		{Name: "record_history", Fn: f.recordHistory},
	})
	return state, err
}

func (f *LongFormV2) research(ctx context.Context, s *types.LongFormV2State) error {
	if f.d.Research == nil || !s.Config.EnableResearch {
		return nil
	}
	bundle, err := f.d.Research.Gather(ctx, s.Config.Topic)
	if err != nil {
		return err
	}
	s.Research = bundle
	return nil
}

func (f *LongFormV2) generateGoal(ctx context.Context, s *types.LongFormV2State) error {
	out, err := genJSON[struct {
		Goal string `json:"goal"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: goalPrompt(s.Config)})
	if err != nil {
		return err
	}
	s.Goal = out.Goal
	return nil
}

func (f *LongFormV2) defineStyle(ctx context.Context, s *types.LongFormV2State) error {
	guide, err := genJSON[types.StyleGuide](ctx, f.d.Gen, ports.GenRequest{
		System: writerSystem,
		Prompt: styleGuidePrompt(s.Config),
	})
	if err != nil {
		return err
	}
	s.StyleGuide = guide
	return nil
}

func (f *LongFormV2) planStructure(ctx context.Context, s *types.LongFormV2State) error {
	out, err := genJSON[struct {
		Sections []types.SectionStructure `json:"sections"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: structurePrompt(s.Config, s.Goal)})
	if err != nil {
		return err
	}
	if len(out.Sections) == 0 {
		return fmt.Errorf("model returned no sections")
	}
	s.Sections = make([]types.SectionV2State, len(out.Sections))
	for i, st := range out.Sections {
		s.Sections[i] = types.SectionV2State{Structure: st}
	}
	return nil
}

func (f *LongFormV2) writeSections(ctx context.Context, s *types.LongFormV2State) error {
	if err := f.writer.write(ctx, f, s); err != nil {
		return err
	}
	var all []string
	for _, sec := range s.Sections {
		if sec.Connector != "" {
			all = append(all, sec.Connector)
		}
		all = append(all, sec.Script)
	}
	s.FullScript = strings.Join(all, "\n\n")
	return nil
}

// writeOneSection scripts and quality-gates a single section.
func (f *LongFormV2) writeOneSection(ctx context.Context, s *types.LongFormV2State, i int, previousTail string) error {
	out, err := genJSON[struct {
		Script string `json:"script"`
	}](ctx, f.d.Gen, ports.GenRequest{
		System: writerSystem,
		Prompt: sectionScriptPrompt(s.Config, s.Goal, s.Sections[i].Structure, previousTail),
	})
	if err != nil {
		return fmt.Errorf("section %d: %w", i, err)
	}
	script, report, err := reviewAndRevise(ctx, f.d, s.Config, s.Goal, out.Script)
	if err != nil {
		return fmt.Errorf("section %d: %w", i, err)
	}
	s.Sections[i].Script = script
	s.Sections[i].ScriptQuality = report
	return nil
}

type sequentialWriter struct{}

func (sequentialWriter) write(ctx context.Context, f *LongFormV2, s *types.LongFormV2State) error {
	previousTail := ""
	for i := range s.Sections {
		if err := f.writeOneSection(ctx, s, i, previousTail); err != nil {
			return err
		}
		previousTail = scriptTail(s.Sections[i].Script)
	}
	return nil
}

type parallelWriter struct{}

func (parallelWriter) write(ctx context.Context, f *LongFormV2, s *types.LongFormV2State) error {
	err := pipeline.ForEach(ctx, s.Sections, sectionConcurrency, func(ctx context.Context, i int, _ types.SectionV2State) error {
		return f.writeOneSection(ctx, s, i, "")
	})
	if err != nil {
		return err
	}
	// Connector pass: sections were written blind to each other, so
	// bridge every boundary with one spoken sentence.
	return pipeline.ForEach(ctx, s.Sections[1:], sectionConcurrency, func(ctx context.Context, i int, _ types.SectionV2State) error {
		idx := i + 1
		out, err := genJSON[struct {
			Connector string `json:"connector"`
		}](ctx, f.d.Gen, ports.GenRequest{
			System: writerSystem,
			Prompt: connectorPrompt(scriptTail(s.Sections[idx-1].Script), scriptHead(s.Sections[idx].Script)),
		})
		if err != nil {
			return fmt.Errorf("connector %d: %w", idx, err)
		}
		s.Sections[idx].Connector = out.Connector
		return nil
	})
}

func (f *LongFormV2) produceSections(ctx context.Context, s *types.LongFormV2State) error {
	return pipeline.ForEach(ctx, s.Sections, sectionConcurrency, func(ctx context.Context, i int, _ types.SectionV2State) error {
		if err := f.produceSection(ctx, s, i); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		return nil
	})
}

func (f *LongFormV2) produceSection(ctx context.Context, s *types.LongFormV2State, idx int) error {
	cfg := s.Config
	sec := &s.Sections[idx]
	dir := filepath.Join(f.d.RunDir, fmt.Sprintf("section_%02d", idx))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	secDeps := f.d
	secDeps.RunDir = dir

	spoken := sec.Script
	if sec.Connector != "" {
		spoken = sec.Connector + " " + spoken
	}
	sec.TTSScript = spoken

	out, err := genJSON[struct {
		Segments []string `json:"segments"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: segmentPrompt(spoken)})
	if err != nil {
		return err
	}
	if len(out.Segments) == 0 {
		return fmt.Errorf("model returned no segments")
	}
	sec.Segments = out.Segments

	res, err := f.d.TTS.Synthesize(ctx, ports.SpeechRequest{
		Text:    spoken,
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

	if err := planStoryboard(ctx, secDeps, cfg, sec.Segments, sec.VisualPlans, s.StyleGuide.Summary); err != nil {
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

func (f *LongFormV2) assembleVideo(ctx context.Context, s *types.LongFormV2State) error {
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

func (f *LongFormV2) recordHistory(ctx context.Context, s *types.LongFormV2State) error {
	f.d.recordRun(ctx, types.RunRecord{
		Topic:         s.Config.Topic,
		VideoType:     "long_v2",
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

// scriptHead returns the first sentence or so of a script.
func scriptHead(script string) string {
	const maxHead = 200
	script = strings.TrimSpace(script)
	if len(script) <= maxHead {
		return script
	}
	head := script[:maxHead]
	if i := strings.LastIndexAny(head, ".!?"); i > 0 {
		head = head[:i+1]
	}
	return head
}
