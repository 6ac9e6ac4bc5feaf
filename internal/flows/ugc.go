package flows

import (
	"context"
	"fmt"

	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
)

// UGC produces a creator-style product review: a first-person script
// narrated over photorealistic product-in-environment scenes, one scene
// per script segment.
type UGC struct {
	d Deps
}

func NewUGC(d Deps) *UGC {
	return &UGC{d: d}
}

func (f *UGC) Run(ctx context.Context, cfg types.RunConfig) (*types.UGCState, error) {
	if err := f.d.ensureRunDir(); err != nil {
		return nil, err
	}
	state := &types.UGCState{Config: cfg}
	runner := pipeline.NewRunner(f.d.Log, runnerOpts[types.UGCState](f.d)...)
	err := runner.Run(ctx, state, []pipeline.Step[types.UGCState]{
		{Name: "describe_product", Fn: f.describeProduct},
		{Name: "write_script", Fn: f.writeScript},
		{Name: "enhance_for_tts", Fn: f.enhanceForTTS},
		{Name: "split_segments", Fn: f.splitSegments},
		{Name: "generate_audio", Fn: f.generateAudio},
		{Name: "align_segments", Fn: f.alignSegments},
		{Name: "plan_scenes", Fn: f.planScenes},
		{Name: "generate_scene_images", Fn: f.generateSceneImages},
		{Name: "render_clips", Fn: f.renderClips},
		{Name: "assemble_video", Fn: f.assembleVideo},
		{Name: "record_history", Fn: f.recordHistory},
	})
	return state, err
}

// describeProduct condenses the product inputs into one concrete visual
// description that every scene prompt embeds, so the product looks the
// same in every shot.
func (f *UGC) describeProduct(ctx context.Context, s *types.UGCState) error {
	out, err := genJSON[struct {
		Description string `json:"description"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: productVisualPrompt(s.Config)})
	if err != nil {
		return err
	}
	s.ProductVisual = out.Description
	return nil
}

func (f *UGC) writeScript(ctx context.Context, s *types.UGCState) error {
	out, err := genJSON[struct {
		Script string `json:"script"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: ugcScriptPrompt(s.Config, s.ProductVisual)})
	if err != nil {
		return err
	}
	s.Script = out.Script
	return nil
}

func (f *UGC) enhanceForTTS(ctx context.Context, s *types.UGCState) error {
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

func (f *UGC) splitSegments(ctx context.Context, s *types.UGCState) error {
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

func (f *UGC) generateAudio(ctx context.Context, s *types.UGCState) error {
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

func (f *UGC) alignSegments(_ context.Context, s *types.UGCState) error {
	s.SegmentTimings = f.d.Aligner.Segments(s.WordAlignments, s.Segments)
	return nil
}

// planScenes asks for one product scene per segment in a single call,
// so the planner sees the whole narration and can vary settings across
// the video.
func (f *UGC) planScenes(ctx context.Context, s *types.UGCState) error {
	out, err := genJSON[struct {
		Scenes []struct {
			Setting      string `json:"setting"`
			ImagePrompt  string `json:"image_prompt"`
			MotionPrompt string `json:"motion_prompt"`
		} `json:"scenes"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: scenePlanPrompt(s.Config, s.ProductVisual, s.Segments)})
	if err != nil {
		return err
	}
	if len(out.Scenes) == 0 {
		return fmt.Errorf("model returned no scenes")
	}
	// One scene per segment; reuse the last scene if the model returned
	// too few.
	s.Scenes = make([]types.SceneDescription, len(s.Segments))
	for i := range s.Segments {
		src := out.Scenes[min(i, len(out.Scenes)-1)]
		s.Scenes[i] = types.SceneDescription{
			SegmentIndex: i,
			Setting:      src.Setting,
			ImagePrompt:  src.ImagePrompt,
			MotionPrompt: src.MotionPrompt,
		}
	}
	return nil
}

func (f *UGC) generateSceneImages(ctx context.Context, s *types.UGCState) error {
	s.VisualPlans = make([]types.SegmentVisualPlan, len(s.Scenes))
	for i, scene := range s.Scenes {
		s.VisualPlans[i] = types.SegmentVisualPlan{
			SegmentIndex:      i,
			NumImages:         1,
			LastImageDuration: s.SegmentTimings[i].Duration,
			ImageDescriptions: []string{scene.ImagePrompt},
			MotionPrompt:      scene.MotionPrompt,
		}
	}
	return pipeline.ForEach(ctx, s.Scenes, imageConcurrency, func(ctx context.Context, i int, scene types.SceneDescription) error {
		path, err := f.d.Images.GenerateImage(ctx, ports.ImageRequest{
			Prompt:      scene.ImagePrompt,
			Style:       "photorealistic, natural smartphone photo",
			Orientation: s.Config.Orientation,
			OutPath:     f.d.path(fmt.Sprintf("scene_%02d.png", i)),
		})
		if err != nil {
			return fmt.Errorf("scene %d image: %w", i, err)
		}
		s.VisualPlans[i].ImagePaths = []string{path}
		return nil
	})
}

func (f *UGC) renderClips(ctx context.Context, s *types.UGCState) error {
	clips, err := renderSegmentClips(ctx, f.d, s.Config, s.VisualPlans, f.d.RunDir)
	if err != nil {
		return err
	}
	s.ClipPaths = clips
	return nil
}

func (f *UGC) assembleVideo(ctx context.Context, s *types.UGCState) error {
	// UGC output carries no burned subtitles and always ends on a still
	// buffer.
	cfg := s.Config
	cfg.AddSubtitles = false
	cfg.AddEndBuffer = true
	final, err := assembleFinal(ctx, f.d, cfg, s.ClipPaths, s.AudioPath, s.WordAlignments, "final.mp4")
	if err != nil {
		return err
	}
	s.FinalVideoPath = final
	return nil
}

func (f *UGC) recordHistory(ctx context.Context, s *types.UGCState) error {
	topic := s.Config.ProductName
	if topic == "" {
		topic = s.Config.Topic
	}
	f.d.recordRun(ctx, types.RunRecord{
		Topic:         topic,
		VideoType:     "ugc",
		Duration:      s.Config.DurationSeconds,
		Orientation:   s.Config.Orientation,
		ModelProvider: s.Config.ModelProvider,
		ImageProvider: s.Config.ImageProvider,
		VoiceActor:    s.Config.VoiceActor,
		VideoPath:     s.FinalVideoPath,
		Script:        s.Script,
		Goal:          s.ProductVisual,
	})
	return nil
}
