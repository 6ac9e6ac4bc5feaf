package flows

import (
	"context"
	"fmt"

	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
	"github.com/reelforge/reelforge/internal/visuals"
)

// ShortFormV2 is the short-form flow with research grounding, an
// editorial quality gate on the script, and a run-wide style guide.
type ShortFormV2 struct {
	d Deps
}

func NewShortFormV2(d Deps) *ShortFormV2 {
	return &ShortFormV2{d: d}
}

func (f *ShortFormV2) Run(ctx context.Context, cfg types.RunConfig) (*types.ShortFormV2State, error) {
	if err := f.d.ensureRunDir(); err != nil {
		return nil, err
	}
	state := &types.ShortFormV2State{Config: cfg}
	runner := pipeline.NewRunner(f.d.Log, runnerOpts[types.ShortFormV2State](f.d)...)
	err := runner.Run(ctx, state, []pipeline.Step[types.ShortFormV2State]{
		{Name: "research", Fn: f.research},
		{Name: "generate_goal", Fn: f.generateGoal},
		{Name: "write_hook", Fn: f.writeHook},
		{Name: "write_script", Fn: f.writeScript},
		{Name: "review_script", Fn: f.reviewScript},
		{Name: "define_style", Fn: f.defineStyle},
		{Name: "split_segments", Fn: f.splitSegments},
		{Name: "enhance_for_tts", Fn: f.enhanceForTTS},
		{Name: "generate_audio", Fn: f.generateAudio},
		{Name: "align_segments", Fn: f.alignSegments},
		{Name: "plan_visuals", Fn: f.planVisuals},
		{Name: "plan_storyboard", Fn: f.planStoryboard},
		{Name: "generate_images", Fn: f.generateImages},
		{Name: "render_clips", Fn: f.renderClips},
		{Name: "assemble_video", Fn: f.assembleVideo},
		{Name: "record_history", Fn: f.recordHistory},
	})
	return state, err
}

func (f *ShortFormV2) research(ctx context.Context, s *types.ShortFormV2State) error {
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

func (f *ShortFormV2) generateGoal(ctx context.Context, s *types.ShortFormV2State) error {
	out, err := genJSON[struct {
		Goal string `json:"goal"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: goalPrompt(s.Config)})
	if err != nil {
		return err
	}
	s.Goal = out.Goal
	return nil
}

func (f *ShortFormV2) writeHook(ctx context.Context, s *types.ShortFormV2State) error {
	out, err := genJSON[struct {
		Hook string `json:"hook"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: hookPrompt(s.Config, s.Goal)})
	if err != nil {
		return err
	}
	s.Hook = out.Hook
	return nil
}

func (f *ShortFormV2) writeScript(ctx context.Context, s *types.ShortFormV2State) error {
	out, err := genJSON[struct {
		Script string `json:"script"`
	}](ctx, f.d.Gen, ports.GenRequest{
		System: writerSystem,
		Prompt: scriptPrompt(s.Config, s.Goal, s.Hook, s.Research.Synthesis),
	})
	if err != nil {
		return err
	}
	s.Script = out.Script
	return nil
}

func (f *ShortFormV2) reviewScript(ctx context.Context, s *types.ShortFormV2State) error {
	script, report, err := reviewAndRevise(ctx, f.d, s.Config, s.Goal, s.Script)
	if err != nil {
		return err
	}
	s.Script = script
	s.ScriptQuality = report
	return nil
}

func (f *ShortFormV2) defineStyle(ctx context.Context, s *types.ShortFormV2State) error {
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

func (f *ShortFormV2) splitSegments(ctx context.Context, s *types.ShortFormV2State) error {
	out, err := genJSON[struct {
		Segments []string `json:"segments"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: segmentPrompt(s.Script)})
	if err != nil {
		return err
	}
	if len(out.Segments) == 0 {
		return fmt.Errorf("model returned no segments")
	}
	s.Segments = out.Segments
	return nil
}

func (f *ShortFormV2) enhanceForTTS(ctx context.Context, s *types.ShortFormV2State) error {
	if !s.Config.EnhanceForTTS {
		s.EnhancedScript = s.Script
		return nil
	}
	out, err := genJSON[struct {
		Script string `json:"script"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: enhancePrompt(s.Script)})
	if err != nil {
		return err
	}
	s.EnhancedScript = out.Script
	return nil
}

func (f *ShortFormV2) generateAudio(ctx context.Context, s *types.ShortFormV2State) error {
	res, err := f.d.TTS.Synthesize(ctx, ports.SpeechRequest{
		Text:    s.EnhancedScript,
		Voice:   s.Config.VoiceActor,
		Model:   s.Config.VoiceModel,
		OutPath: f.d.path("narration.mp3"),
	})
	if err != nil {
		return err
	}
	s.AudioPath = res.AudioPath
	s.WordAlignments = res.Words
	return nil
}

func (f *ShortFormV2) alignSegments(_ context.Context, s *types.ShortFormV2State) error {
	s.SegmentTimings = f.d.Aligner.Segments(s.WordAlignments, s.Segments)
	return nil
}

func (f *ShortFormV2) planVisuals(_ context.Context, s *types.ShortFormV2State) error {
	s.VisualPlans = visuals.Plan(s.SegmentTimings, s.Config)
	return nil
}

func (f *ShortFormV2) planStoryboard(ctx context.Context, s *types.ShortFormV2State) error {
	return planStoryboard(ctx, f.d, s.Config, s.Segments, s.VisualPlans, s.StyleGuide.Summary)
}

func (f *ShortFormV2) generateImages(ctx context.Context, s *types.ShortFormV2State) error {
	return generateImages(ctx, f.d, s.Config, s.VisualPlans, f.d.RunDir)
}

func (f *ShortFormV2) renderClips(ctx context.Context, s *types.ShortFormV2State) error {
	clips, err := renderSegmentClips(ctx, f.d, s.Config, s.VisualPlans, f.d.RunDir)
	if err != nil {
		return err
	}
	s.ClipPaths = clips
	return nil
}

func (f *ShortFormV2) assembleVideo(ctx context.Context, s *types.ShortFormV2State) error {
	final, err := assembleFinal(ctx, f.d, s.Config, s.ClipPaths, s.AudioPath, s.WordAlignments, "final.mp4")
	if err != nil {
		return err
	}
	s.FinalVideoPath = final
	return nil
}

func (f *ShortFormV2) recordHistory(ctx context.Context, s *types.ShortFormV2State) error {
	f.d.recordRun(ctx, types.RunRecord{
		Topic:         s.Config.Topic,
		VideoType:     "short_v2",
		Duration:      s.Config.DurationSeconds,
		Orientation:   s.Config.Orientation,
		ModelProvider: s.Config.ModelProvider,
		ImageProvider: s.Config.ImageProvider,
		VoiceActor:    s.Config.VoiceActor,
		VideoPath:     s.FinalVideoPath,
		Script:        s.Script,
		Goal:          s.Goal,
	})
	return nil
}
