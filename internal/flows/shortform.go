package flows

import (
	"context"
	"fmt"

	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
	"github.com/reelforge/reelforge/internal/visuals"
)

// ShortForm produces a single-narrator vertical video from a topic.
type ShortForm struct {
	d Deps
}

func NewShortForm(d Deps) *ShortForm {
	return &ShortForm{d: d}
}

// Run executes the full short-form pipeline. On error the returned
// state holds everything produced before the failing step.
func (f *ShortForm) Run(ctx context.Context, cfg types.RunConfig) (*types.ShortFormState, error) {
	if err := f.d.ensureRunDir(); err != nil {
		return nil, err
	}
	state := &types.ShortFormState{Config: cfg}
	runner := pipeline.NewRunner(f.d.Log, runnerOpts[types.ShortFormState](f.d)...)
	err := runner.Run(ctx, state, f.steps())
	return state, err
}

func (f *ShortForm) steps() []pipeline.Step[types.ShortFormState] {
	return []pipeline.Step[types.ShortFormState]{
		{Name: "generate_goal", Fn: f.generateGoal},
		{Name: "write_hook", Fn: f.writeHook},
		{Name: "write_script", Fn: f.writeScript},
		{Name: "split_segments", Fn: f.splitSegments},
		{Name: "enhance_for_tts", Fn: f.enhanceForTTS},
		{Name: "generate_audio", Fn: f.generateAudio},
		{Name: "align_segments", Fn: f.alignSegments},
		{Name: "plan_visuals", Fn: f.planVisuals},
		{Name: "describe_images", Fn: f.describeImages},
		{Name: "generate_images", Fn: f.generateImages},
		{Name: "render_clips", Fn: f.renderClips},
		{Name: "assemble_video", Fn: f.assembleVideo},
		{Name: "record_history", Fn: f.recordHistory},
	}
}

func (f *ShortForm) generateGoal(ctx context.Context, s *types.ShortFormState) error {
	out, err := genJSON[struct {
		Goal string `json:"goal"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: goalPrompt(s.Config)})
	if err != nil {
		return err
	}
	s.Goal = out.Goal
	return nil
}

func (f *ShortForm) writeHook(ctx context.Context, s *types.ShortFormState) error {
	out, err := genJSON[struct {
		Hook string `json:"hook"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: hookPrompt(s.Config, s.Goal)})
	if err != nil {
		return err
	}
	s.Hook = out.Hook
	return nil
}

func (f *ShortForm) writeScript(ctx context.Context, s *types.ShortFormState) error {
	out, err := genJSON[struct {
		Script string `json:"script"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: scriptPrompt(s.Config, s.Goal, s.Hook, "")})
	if err != nil {
		return err
	}
	s.Script = out.Script
	return nil
}

func (f *ShortForm) splitSegments(ctx context.Context, s *types.ShortFormState) error {
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

func (f *ShortForm) enhanceForTTS(ctx context.Context, s *types.ShortFormState) error {
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

func (f *ShortForm) generateAudio(ctx context.Context, s *types.ShortFormState) error {
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

func (f *ShortForm) alignSegments(_ context.Context, s *types.ShortFormState) error {
	s.SegmentTimings = f.d.Aligner.Segments(s.WordAlignments, s.Segments)
	return nil
}

func (f *ShortForm) planVisuals(_ context.Context, s *types.ShortFormState) error {
	s.VisualPlans = visuals.Plan(s.SegmentTimings, s.Config)
	return nil
}

func (f *ShortForm) describeImages(ctx context.Context, s *types.ShortFormState) error {
	return describeImages(ctx, f.d, s.Config, s.Segments, s.VisualPlans)
}

func (f *ShortForm) generateImages(ctx context.Context, s *types.ShortFormState) error {
	return generateImages(ctx, f.d, s.Config, s.VisualPlans, f.d.RunDir)
}

func (f *ShortForm) renderClips(ctx context.Context, s *types.ShortFormState) error {
	clips, err := renderSegmentClips(ctx, f.d, s.Config, s.VisualPlans, f.d.RunDir)
	if err != nil {
		return err
	}
	s.ClipPaths = clips
	return nil
}

func (f *ShortForm) assembleVideo(ctx context.Context, s *types.ShortFormState) error {
	final, err := assembleFinal(ctx, f.d, s.Config, s.ClipPaths, s.AudioPath, s.WordAlignments, "final.mp4")
	if err != nil {
		return err
	}
	s.FinalVideoPath = final
	return nil
}

func (f *ShortForm) recordHistory(ctx context.Context, s *types.ShortFormState) error {
	f.d.recordRun(ctx, types.RunRecord{
		Topic:         s.Config.Topic,
		VideoType:     "short",
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
