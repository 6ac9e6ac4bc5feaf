// Package ffmpeg renders and assembles video through the ffmpeg and
// ffprobe binaries.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/ports"
)

const (
	slideshowFPS = 30
	zoomPerFrame = 0.0008
)

// Runner shells out to ffmpeg. Renders are CPU bound, so concurrent
// invocations are capped at the machine's core count.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
	log         zerolog.Logger
	sem         chan struct{}
}

var (
	_ ports.ClipRenderer = (*Runner)(nil)
	_ ports.Assembler    = (*Runner)(nil)
)

func New(ffmpegPath, ffprobePath string, log zerolog.Logger) *Runner {
	return &Runner{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		log:         log,
		sem:         make(chan struct{}, runtime.NumCPU()),
	}
}

// RenderSlideshow animates the slides with a slow zoom and concatenates
// them into one clip at the orientation's output resolution.
func (r *Runner) RenderSlideshow(ctx context.Context, spec ports.SlideshowSpec) (string, error) {
	if len(spec.Slides) == 0 {
		return "", fmt.Errorf("ffmpeg: slideshow needs at least one slide")
	}
	w, h := resolutionFor(spec.Orientation)

	args := []string{"-y"}
	for _, s := range spec.Slides {
		args = append(args, "-loop", "1", "-t", formatSeconds(s.Duration), "-i", s.ImagePath)
	}

	var filter strings.Builder
	for i, s := range spec.Slides {
		frames := int(s.Duration * slideshowFPS)
		if frames < 1 {
			frames = 1
		}
		// Upscale before zoompan to hide subpixel jitter.
		fmt.Fprintf(&filter,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,scale=8000:-1,"+
				"zoompan=%s:d=%d:s=%dx%d:fps=%d,"+
				"setsar=1[v%d];",
			i, w, h, w, h, motionExpr(s.Motion, frames), frames, w, h, slideshowFPS, i)
	}
	for i := range spec.Slides {
		fmt.Fprintf(&filter, "[v%d]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=0[out]", len(spec.Slides))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-r", strconv.Itoa(slideshowFPS),
		spec.OutPath,
	)
	if err := r.runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return spec.OutPath, nil
}

// Concat joins the clips losslessly with the concat demuxer. All clips
// must share codec and resolution, which holds for clips this package
// rendered.
func (r *Runner) Concat(ctx context.Context, clipPaths []string, outPath string) (string, error) {
	if len(clipPaths) == 0 {
		return "", fmt.Errorf("ffmpeg: nothing to concatenate")
	}
	listPath := outPath + ".txt"
	var list strings.Builder
	for _, p := range clipPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("ffmpeg: write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outPath}
	if err := r.runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// Mux lays the narration under the video, ending at the shorter of the
// two.
func (r *Runner) Mux(ctx context.Context, videoPath, audioPath, outPath string) (string, error) {
	args := []string{
		"-y", "-i", videoPath, "-i", audioPath,
		"-c:v", "copy", "-c:a", "aac", "-b:a", "192k",
		"-map", "0:v:0", "-map", "1:a:0",
		"-shortest",
		outPath,
	}
	if err := r.runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// BurnSubtitles re-encodes the video with the subtitle file rendered in.
func (r *Runner) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outPath string) (string, error) {
	args := []string{
		"-y", "-i", videoPath,
		"-vf", "subtitles=" + escapeFilterPath(subtitlePath),
		"-c:a", "copy",
		outPath,
	}
	if err := r.runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// AppendStillBuffer freezes the last frame for the given number of
// seconds, keeping the audio as is.
func (r *Runner) AppendStillBuffer(ctx context.Context, videoPath string, seconds float64, outPath string) (string, error) {
	args := []string{
		"-y", "-i", videoPath,
		"-vf", fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", formatSeconds(seconds)),
		"-c:a", "copy",
		outPath,
	}
	if err := r.runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return outPath, nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe reads duration, dimensions and audio presence via ffprobe.
func (r *Runner) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	out, err := cmd.Output()
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return ports.MediaInfo{}, fmt.Errorf("ffprobe %s: decode: %w", path, err)
	}

	var info ports.MediaInfo
	if secs, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width, info.Height = s.Width, s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func (r *Runner) runFFmpeg(ctx context.Context, args []string) error {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.sem }()

	r.log.Debug().Strs("args", args).Msg("ffmpeg")
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(out, 400))
	}
	return nil
}

// motionExpr builds the z/x/y portion of a zoompan filter for one
// motion style. frames is the slide's total frame count, which the pan
// expressions use to sweep the full travel over the slide's duration.
func motionExpr(motion string, frames int) string {
	const centered = ":x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)'"
	switch motion {
	case "zoom_out":
		return fmt.Sprintf("z='if(eq(on,1),1.35,max(zoom-%g,1.0))'", zoomPerFrame) + centered
	case "pan_left":
		return fmt.Sprintf("z='1.15':x='(iw-iw/zoom)*(1-on/%d)':y='ih/2-(ih/zoom/2)'", frames)
	case "pan_right":
		return fmt.Sprintf("z='1.15':x='(iw-iw/zoom)*on/%d':y='ih/2-(ih/zoom/2)'", frames)
	case "ken_burns":
		return fmt.Sprintf("z='min(zoom+%g,1.25)':x='(iw-iw/zoom)*on/%d':y='(ih-ih/zoom)*on/%d'",
			zoomPerFrame, frames, frames)
	default: // zoom_in
		return fmt.Sprintf("z='min(zoom+%g,1.35)'", zoomPerFrame) + centered
	}
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter
// argument, where colons and quotes are syntax.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, `'`, `\'`)
	p = strings.ReplaceAll(p, `:`, `\:`)
	return "'" + p + "'"
}

func formatSeconds(secs float64) string {
	return strconv.FormatFloat(secs, 'f', 3, 64)
}

func resolutionFor(orientation string) (int, int) {
	if orientation == "landscape" {
		return 1920, 1080
	}
	return 1080, 1920
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
