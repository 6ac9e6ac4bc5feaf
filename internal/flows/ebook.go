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
)

// Ebook turns a topic into a chaptered manuscript with a cover image,
// optionally illustrated and narrated into an audiobook. Chapters are
// drafted sequentially so each writer sees how the previous chapter
// ended; the later edit pass runs in parallel because polished chapters
// no longer depend on each other.
type Ebook struct {
	d Deps
}

func NewEbook(d Deps) *Ebook {
	return &Ebook{d: d}
}

func (f *Ebook) Run(ctx context.Context, cfg types.RunConfig) (*types.EbookState, error) {
	if err := f.d.ensureRunDir(); err != nil {
		return nil, err
	}
	state := &types.EbookState{Config: cfg}
	runner := pipeline.NewRunner(f.d.Log, runnerOpts[types.EbookState](f.d)...)
	err := runner.Run(ctx, state, []pipeline.Step[types.EbookState]{
		{Name: "plan_outline", Fn: f.planOutline},
		{Name: "write_introduction", Fn: f.writeIntroduction},
		{Name: "write_chapters", Fn: f.writeChapters},
		{Name: "write_conclusion", Fn: f.writeConclusion},
		{Name: "edit_chapters", Fn: f.editChapters},
		{Name: "generate_chapter_images", Fn: f.generateChapterImages},
		{Name: "generate_cover", Fn: f.generateCover},
		{Name: "compile_manuscript", Fn: f.compileManuscript},
		{Name: "narrate_chapters", Fn: f.narrateChapters},
		{Name: "record_history", Fn: f.recordHistory},
	})
	return state, err
}

func (f *Ebook) planOutline(ctx context.Context, s *types.EbookState) error {
	prompt := fmt.Sprintf(
		"Topic: %s\nAudience: %s\nTone: %s\n\n"+
			"Plan a short ebook: a title and 5 to 8 chapters, each with a title and a one-sentence summary.\n"+
			`Respond as JSON: {"title": "...", "chapters": [{"title": "...", "summary": "..."}]}`,
		s.Config.Topic, s.Config.TargetAudience, s.Config.Tone)
	out, err := genJSON[struct {
		Title    string `json:"title"`
		Chapters []struct {
			Title   string `json:"title"`
			Summary string `json:"summary"`
		} `json:"chapters"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: prompt})
	if err != nil {
		return err
	}
	if out.Title == "" || len(out.Chapters) == 0 {
		return fmt.Errorf("model returned an empty outline")
	}
	s.Title = out.Title
	s.Chapters = make([]types.ChapterState, len(out.Chapters))
	var outline []string
	for i, ch := range out.Chapters {
		s.Chapters[i] = types.ChapterState{Title: ch.Title, Summary: ch.Summary}
		outline = append(outline, fmt.Sprintf("%d. %s: %s", i+1, ch.Title, ch.Summary))
	}
	s.Outline = strings.Join(outline, "\n")
	return nil
}

func (f *Ebook) writeIntroduction(ctx context.Context, s *types.EbookState) error {
	prompt := fmt.Sprintf(
		"Book: %s\nTopic: %s\nAudience: %s\nOutline:\n%s\n\n"+
			"Write the book's introduction in 200 to 400 words: why this topic matters to this reader and what the book will cover. Markdown prose, no heading.\n"+
			`Respond as JSON: {"introduction": "..."}`,
		s.Title, s.Config.Topic, s.Config.TargetAudience, s.Outline)
	out, err := genJSON[struct {
		Introduction string `json:"introduction"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: prompt})
	if err != nil {
		return err
	}
	s.Introduction = out.Introduction
	return nil
}

// writeChapters drafts chapters in order. Each prompt carries the
// previous chapter's summary and closing lines so the narrative flows
// across chapter breaks.
func (f *Ebook) writeChapters(ctx context.Context, s *types.EbookState) error {
	for i := range s.Chapters {
		ch := &s.Chapters[i]
		var b strings.Builder
		fmt.Fprintf(&b, "Book: %s\nFull outline:\n%s\n\n", s.Title, s.Outline)
		if i > 0 {
			prev := s.Chapters[i-1]
			fmt.Fprintf(&b, "The previous chapter (%s, about: %s) ended with:\n%s\n\nContinue naturally from it.\n\n",
				prev.Title, prev.Summary, scriptTail(prev.Content))
		}
		fmt.Fprintf(&b, "Write chapter %d, \"%s\" (%s), in 600 to 900 words of flowing prose. Markdown, no heading (it is added later).\n", i+1, ch.Title, ch.Summary)
		b.WriteString(`Respond as JSON: {"content": "..."}`)

		out, err := genJSON[struct {
			Content string `json:"content"`
		}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: b.String()})
		if err != nil {
			return fmt.Errorf("chapter %d: %w", i+1, err)
		}
		ch.Content = out.Content
	}
	return nil
}

func (f *Ebook) writeConclusion(ctx context.Context, s *types.EbookState) error {
	last := s.Chapters[len(s.Chapters)-1]
	prompt := fmt.Sprintf(
		"Book: %s\nOutline:\n%s\n\nThe final chapter ended with:\n%s\n\n"+
			"Write the book's conclusion in 150 to 300 words: pull the threads together and leave the reader with one clear takeaway. Markdown prose, no heading.\n"+
			`Respond as JSON: {"conclusion": "..."}`,
		s.Title, s.Outline, scriptTail(last.Content))
	out, err := genJSON[struct {
		Conclusion string `json:"conclusion"`
	}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: prompt})
	if err != nil {
		return err
	}
	s.Conclusion = out.Conclusion
	return nil
}

// editChapters polishes every chapter concurrently. At this point
// chapters are independent, so the pass fans out.
func (f *Ebook) editChapters(ctx context.Context, s *types.EbookState) error {
	return pipeline.ForEach(ctx, s.Chapters, sectionConcurrency, func(ctx context.Context, i int, ch types.ChapterState) error {
		prompt := fmt.Sprintf(
			"Chapter %d of \"%s\":\n%s\n\n"+
				"Polish this chapter: tighten wording, fix awkward transitions, keep the length and meaning. Return the full revised text.\n"+
				`Respond as JSON: {"content": "..."}`,
			i+1, s.Title, ch.Content)
		out, err := genJSON[struct {
			Content string `json:"content"`
		}](ctx, f.d.Gen, ports.GenRequest{System: writerSystem, Prompt: prompt})
		if err != nil {
			return fmt.Errorf("edit chapter %d: %w", i+1, err)
		}
		s.Chapters[i].Content = out.Content
		return nil
	})
}

// generateChapterImages renders one illustration per chapter when the
// run asks for them.
func (f *Ebook) generateChapterImages(ctx context.Context, s *types.EbookState) error {
	if !s.Config.ChapterImages {
		return nil
	}
	return pipeline.ForEach(ctx, s.Chapters, imageConcurrency, func(ctx context.Context, i int, ch types.ChapterState) error {
		path, err := f.d.Images.GenerateImage(ctx, ports.ImageRequest{
			Prompt:      fmt.Sprintf("Illustration for a book chapter titled \"%s\": %s. No text or lettering.", ch.Title, ch.Summary),
			Style:       s.Config.ImageStyle,
			Orientation: "landscape",
			OutPath:     f.d.path(fmt.Sprintf("chapter_%02d.png", i+1)),
		})
		if err != nil {
			return fmt.Errorf("chapter %d image: %w", i+1, err)
		}
		s.Chapters[i].ImagePath = path
		return nil
	})
}

func (f *Ebook) generateCover(ctx context.Context, s *types.EbookState) error {
	path, err := f.d.Images.GenerateImage(ctx, ports.ImageRequest{
		Prompt:      fmt.Sprintf("Book cover illustration for \"%s\", a book about %s. No text or lettering.", s.Title, s.Config.Topic),
		Style:       s.Config.ImageStyle,
		Orientation: "portrait",
		OutPath:     f.d.path("cover.png"),
	})
	if err != nil {
		return fmt.Errorf("cover image: %w", err)
	}
	s.CoverImagePath = path
	return nil
}

func (f *Ebook) compileManuscript(_ context.Context, s *types.EbookState) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", s.Title)
	if s.Introduction != "" {
		fmt.Fprintf(&sb, "## Introduction\n\n%s\n\n", s.Introduction)
	}
	for i, ch := range s.Chapters {
		fmt.Fprintf(&sb, "## Chapter %d: %s\n\n", i+1, ch.Title)
		if ch.ImagePath != "" {
			fmt.Fprintf(&sb, "![%s](%s)\n\n", ch.Title, filepath.Base(ch.ImagePath))
		}
		fmt.Fprintf(&sb, "%s\n\n", ch.Content)
	}
	if s.Conclusion != "" {
		fmt.Fprintf(&sb, "## Conclusion\n\n%s\n", s.Conclusion)
	}
	path := f.d.path("manuscript.md")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write manuscript: %w", err)
	}
	s.ManuscriptPath = path
	return nil
}

// narrateChapters renders each chapter to audio and joins them. Skipped
// when the run has no voice configured.
func (f *Ebook) narrateChapters(ctx context.Context, s *types.EbookState) error {
	if s.Config.VoiceActor == "" {
		return nil
	}
	audioDir := f.d.path("audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return err
	}
	err := pipeline.ForEach(ctx, s.Chapters, 2, func(ctx context.Context, i int, ch types.ChapterState) error {
		res, err := f.d.TTS.Synthesize(ctx, ports.SpeechRequest{
			Text:    ch.Content,
			Voice:   s.Config.VoiceActor,
			Model:   s.Config.VoiceModel,
			OutPath: filepath.Join(audioDir, fmt.Sprintf("chapter_%02d.mp3", i+1)),
		})
		if err != nil {
			return fmt.Errorf("chapter %d narration: %w", i+1, err)
		}
		s.Chapters[i].AudioPath = res.AudioPath
		return nil
	})
	if err != nil {
		return err
	}

	paths := make([]string, len(s.Chapters))
	for i, ch := range s.Chapters {
		paths[i] = ch.AudioPath
	}
	book, err := f.d.Assembler.Concat(ctx, paths, f.d.path("audiobook.mp3"))
	if err != nil {
		return fmt.Errorf("join audiobook: %w", err)
	}
	s.AudiobookPath = book
	return nil
}

func (f *Ebook) recordHistory(ctx context.Context, s *types.EbookState) error {
	f.d.recordRun(ctx, types.RunRecord{
		Topic:         s.Config.Topic,
		VideoType:     "ebook",
		ModelProvider: s.Config.ModelProvider,
		ImageProvider: s.Config.ImageProvider,
		VoiceActor:    s.Config.VoiceActor,
		VideoPath:     s.ManuscriptPath,
		Goal:          s.Title,
	})
	return nil
}
