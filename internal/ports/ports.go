// Package ports declares the seams between the flows and the outside
// world. Adapters live in subpackages; flows depend only on these
// interfaces so every external service can be faked in tests.
package ports

import (
	"context"
	"time"

	"github.com/reelforge/reelforge/internal/types"
)

// GenRequest is one chat-style completion request.
type GenRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// StructuredGenerator produces model completions. GenerateJSON must
// return a body that unmarshals cleanly; adapters enforce JSON output
// mode and strip any markdown fencing the model adds.
type StructuredGenerator interface {
	Generate(ctx context.Context, req GenRequest) (string, error)
	GenerateJSON(ctx context.Context, req GenRequest) ([]byte, error)
}

// SpeechRequest asks for one narration clip.
type SpeechRequest struct {
	Text    string
	Voice   string
	Model   string
	OutPath string
}

// SpeechResult is the synthesized audio plus word-level timing.
type SpeechResult struct {
	AudioPath string
	Duration  float64
	Words     []types.WordAlignment
}

// SpeechSynthesizer turns text into narrated audio with timestamps.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (SpeechResult, error)
}

// ImageRequest asks for one generated still.
type ImageRequest struct {
	Prompt         string
	Style          string
	Orientation    string
	ReferenceImage string
	OutPath        string
}

// ImageProvider renders a prompt to an image file and returns its path.
type ImageProvider interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// VideoRequest asks for one short motion clip, usually animated from a
// base image.
type VideoRequest struct {
	Prompt          string
	BaseImagePath   string
	DurationSeconds float64
	Orientation     string
	OutPath         string
}

// VideoProvider renders a clip and returns its path. Implementations
// follow a submit-then-poll protocol and must respect ctx while polling.
type VideoProvider interface {
	GenerateClip(ctx context.Context, req VideoRequest) (string, error)
}

// SearchResult is one hit from a web search.
type SearchResult struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// Searcher runs web searches for the research phase.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// Slide is one image with its display time inside a slideshow clip.
// Motion selects the animation style (zoom_in, zoom_out, pan_left,
// pan_right, ken_burns); empty means zoom_in.
type Slide struct {
	ImagePath string
	Duration  float64
	Motion    string
}

// SlideshowSpec describes one segment clip rendered from stills.
type SlideshowSpec struct {
	Slides      []Slide
	Orientation string
	OutPath     string
}

// ClipRenderer turns stills into an animated segment clip.
type ClipRenderer interface {
	RenderSlideshow(ctx context.Context, spec SlideshowSpec) (string, error)
}

// MediaInfo is the probe result for a media file.
type MediaInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	HasAudio bool
}

// Assembler stitches clips, audio and subtitles into the final video.
type Assembler interface {
	Concat(ctx context.Context, clipPaths []string, outPath string) (string, error)
	Mux(ctx context.Context, videoPath, audioPath, outPath string) (string, error)
	BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outPath string) (string, error)
	AppendStillBuffer(ctx context.Context, videoPath string, seconds float64, outPath string) (string, error)
	Probe(ctx context.Context, path string) (MediaInfo, error)
}

// HistoryStore records completed runs.
type HistoryStore interface {
	Append(ctx context.Context, rec types.RunRecord) error
	List(ctx context.Context, limit int) ([]types.RunRecord, error)
}
