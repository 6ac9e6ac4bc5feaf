package flows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/subtitles"
	"github.com/reelforge/reelforge/internal/types"
	"github.com/reelforge/reelforge/internal/visuals"
)

const endBufferSeconds = 1.5

// motionStyles rotate across consecutive slides so back-to-back images
// never repeat the same move.
var motionStyles = []string{"zoom_in", "pan_right", "zoom_out", "ken_burns", "pan_left"}

// describeImages fills each plan's image descriptions, one model call
// per segment, fanned out.
func describeImages(ctx context.Context, d Deps, cfg types.RunConfig, segments []string, plans []types.SegmentVisualPlan) error {
	return pipeline.ForEach(ctx, plans, imageConcurrency, func(ctx context.Context, i int, plan types.SegmentVisualPlan) error {
		out, err := genJSON[struct {
			Descriptions []string `json:"descriptions"`
		}](ctx, d.Gen, ports.GenRequest{
			System: writerSystem,
			Prompt: imageDescriptionsPrompt(cfg, segments[plan.SegmentIndex], plan.NumImages),
		})
		if err != nil {
			return fmt.Errorf("segment %d: describe images: %w", plan.SegmentIndex, err)
		}
		if len(out.Descriptions) == 0 {
			return fmt.Errorf("segment %d: model returned no descriptions", plan.SegmentIndex)
		}
		// Pad or trim to the planned count so rendering never indexes
		// past the end.
		for len(out.Descriptions) < plan.NumImages {
			out.Descriptions = append(out.Descriptions, out.Descriptions[len(out.Descriptions)-1])
		}
		plans[i].ImageDescriptions = out.Descriptions[:plan.NumImages]
		return nil
	})
}

// planStoryboard fills every plan's image descriptions in one model
// call covering the whole video, so shots can vary deliberately across
// segments instead of being planned in isolation.
func planStoryboard(ctx context.Context, d Deps, cfg types.RunConfig, segments []string, plans []types.SegmentVisualPlan, style string) error {
	out, err := genJSON[struct {
		Segments []struct {
			Descriptions []string `json:"descriptions"`
		} `json:"segments"`
	}](ctx, d.Gen, ports.GenRequest{
		System: writerSystem,
		Prompt: storyboardPrompt(cfg, style, segments, plans),
	})
	if err != nil {
		return fmt.Errorf("plan storyboard: %w", err)
	}
	for i := range plans {
		var descs []string
		if i < len(out.Segments) {
			descs = out.Segments[i].Descriptions
		}
		if len(descs) == 0 {
			return fmt.Errorf("storyboard missing segment %d", plans[i].SegmentIndex)
		}
		// Pad or trim to the planned count so rendering never indexes
		// past the end.
		for len(descs) < plans[i].NumImages {
			descs = append(descs, descs[len(descs)-1])
		}
		plans[i].ImageDescriptions = descs[:plans[i].NumImages]
	}
	return nil
}

// generateImages renders every planned image concurrently, writing
// results into each plan's ImagePaths slot by index.
func generateImages(ctx context.Context, d Deps, cfg types.RunConfig, plans []types.SegmentVisualPlan, dir string) error {
	type job struct {
		plan, img int
	}
	var jobs []job
	for pi, plan := range plans {
		plans[pi].ImagePaths = make([]string, plan.NumImages)
		for ii := 0; ii < plan.NumImages; ii++ {
			jobs = append(jobs, job{plan: pi, img: ii})
		}
	}
	return pipeline.ForEach(ctx, jobs, imageConcurrency, func(ctx context.Context, _ int, j job) error {
		plan := plans[j.plan]
		out := filepath.Join(dir, fmt.Sprintf("seg%02d_img%02d.png", plan.SegmentIndex, j.img))
		path, err := d.Images.GenerateImage(ctx, ports.ImageRequest{
			Prompt:      plan.ImageDescriptions[j.img],
			Style:       cfg.ImageStyle,
			Orientation: cfg.Orientation,
			OutPath:     out,
		})
		if err != nil {
			return fmt.Errorf("segment %d image %d: %w", plan.SegmentIndex, j.img, err)
		}
		plans[j.plan].ImagePaths[j.img] = path
		return nil
	})
}

// renderSegmentClips turns each segment's stills into a clip: an
// animated slideshow by default, or a generated motion clip from the
// first image when the run asks for video generation.
func renderSegmentClips(ctx context.Context, d Deps, cfg types.RunConfig, plans []types.SegmentVisualPlan, dir string) ([]string, error) {
	return pipeline.Map(ctx, plans, clipConcurrency, func(ctx context.Context, i int, plan types.SegmentVisualPlan) (string, error) {
		out := filepath.Join(dir, fmt.Sprintf("seg%02d.mp4", plan.SegmentIndex))

		if cfg.VisualMode == "video_gen" && d.Video != nil {
			segDuration := float64(plan.NumImages-1)*cfg.IdealImageDuration + plan.LastImageDuration
			prompt := plan.MotionPrompt
			if prompt == "" {
				prompt = plan.ImageDescriptions[0]
			}
			path, err := d.Video.GenerateClip(ctx, ports.VideoRequest{
				Prompt:          prompt,
				BaseImagePath:   plan.ImagePaths[0],
				DurationSeconds: segDuration,
				Orientation:     cfg.Orientation,
				OutPath:         out,
			})
			if err != nil {
				return "", fmt.Errorf("segment %d: generate clip: %w", plan.SegmentIndex, err)
			}
			plans[i].VideoPath = path
			return path, nil
		}

		durations := visuals.ImageDurations(plan, cfg.IdealImageDuration)
		slides := make([]ports.Slide, len(plan.ImagePaths))
		for j, p := range plan.ImagePaths {
			slides[j] = ports.Slide{
				ImagePath: p,
				Duration:  durations[j],
				Motion:    motionStyles[(plan.SegmentIndex+j)%len(motionStyles)],
			}
		}
		path, err := d.Renderer.RenderSlideshow(ctx, ports.SlideshowSpec{
			Slides:      slides,
			Orientation: cfg.Orientation,
			OutPath:     out,
		})
		if err != nil {
			return "", fmt.Errorf("segment %d: render slideshow: %w", plan.SegmentIndex, err)
		}
		plans[i].VideoPath = path
		return path, nil
	})
}

// assembleFinal concatenates the clips, lays the narration under them,
// burns subtitles and appends the end buffer per config.
func assembleFinal(ctx context.Context, d Deps, cfg types.RunConfig, clips []string, audioPath string, words []types.WordAlignment, outName string) (string, error) {
	joined, err := d.Assembler.Concat(ctx, clips, d.path("video_silent.mp4"))
	if err != nil {
		return "", fmt.Errorf("concat clips: %w", err)
	}
	current, err := d.Assembler.Mux(ctx, joined, audioPath, d.path("video_muxed.mp4"))
	if err != nil {
		return "", fmt.Errorf("mux narration: %w", err)
	}
	if cfg.AddSubtitles && len(words) > 0 {
		srt := d.path("subtitles.srt")
		if err := subtitles.Write(words, srt); err != nil {
			return "", fmt.Errorf("write subtitles: %w", err)
		}
		current, err = d.Assembler.BurnSubtitles(ctx, current, srt, d.path("video_subtitled.mp4"))
		if err != nil {
			return "", fmt.Errorf("burn subtitles: %w", err)
		}
	}
	if cfg.AddEndBuffer {
		current, err = d.Assembler.AppendStillBuffer(ctx, current, endBufferSeconds, d.path("video_buffered.mp4"))
		if err != nil {
			return "", fmt.Errorf("append end buffer: %w", err)
		}
	}
	final := d.path(outName)
	if err := os.Rename(current, final); err != nil {
		d.Log.Warn().Err(err).Msg("final rename failed, keeping last stage output")
		return current, nil
	}
	return final, nil
}
