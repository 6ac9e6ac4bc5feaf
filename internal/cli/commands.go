package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/flows"
	"github.com/reelforge/reelforge/internal/history"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/types"
	"github.com/reelforge/reelforge/internal/visuals"
)

// runFlags are the flags shared by every generation command.
type runFlags struct {
	topic          string
	purpose        string
	audience       string
	tone           string
	platform       string
	duration       int
	orientation    string
	imageProvider  string
	videoProvider  string
	visualMode     string
	voice          string
	imageStyle     string
	allowFaces     bool
	noEnhance      bool
	noSubtitles    bool
	noEndBuffer    bool
	singleImage    bool
	v2             bool
	enableResearch bool
	scriptStrategy string
	instructions   string
	imageNotes     string

	// ugc only
	productName    string
	productDesc    string
	referenceNotes string
	simpleScenes   bool

	// ebook only
	chapterImages bool
}

func (rf *runFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&rf.topic, "topic", "", "what the video is about (required)")
	f.StringVar(&rf.purpose, "purpose", "educate", "what the video should achieve")
	f.StringVar(&rf.audience, "audience", "general audience", "who the video is for")
	f.StringVar(&rf.tone, "tone", "engaging", "narration tone")
	f.StringVar(&rf.platform, "platform", "tiktok", "target platform")
	f.IntVar(&rf.duration, "duration", 60, "target length in seconds")
	f.StringVar(&rf.orientation, "orientation", "portrait", "portrait or landscape")
	f.StringVar(&rf.imageProvider, "image-provider", "openai", "openai, google or flux")
	f.StringVar(&rf.videoProvider, "video-provider", "", "runway, luma or kling (enables motion clips)")
	f.StringVar(&rf.visualMode, "visual-mode", "zoompan", "zoompan or video_gen")
	f.StringVar(&rf.voice, "voice", "", "voice actor name or ElevenLabs voice ID")
	f.StringVar(&rf.imageStyle, "image-style", "", "visual style applied to every image")
	f.BoolVar(&rf.allowFaces, "allow-faces", false, "permit human faces in images")
	f.BoolVar(&rf.noEnhance, "no-enhance", false, "skip the TTS-enhancement rewrite")
	f.BoolVar(&rf.noSubtitles, "no-subtitles", false, "skip burned-in subtitles")
	f.BoolVar(&rf.noEndBuffer, "no-end-buffer", false, "skip the freeze-frame tail")
	f.BoolVar(&rf.singleImage, "single-image", false, "one image per segment")
	f.BoolVar(&rf.v2, "v2", false, "use the v2 flow (research, quality gate, style guide)")
	f.BoolVar(&rf.enableResearch, "research", false, "ground the script in web research (v2 only)")
	f.StringVar(&rf.scriptStrategy, "script-strategy", "sequential", "long-form v2 section writing: sequential or parallel")
	f.StringVar(&rf.instructions, "instructions", "", "extra instructions for the writer")
	f.StringVar(&rf.imageNotes, "image-notes", "", "extra notes for image prompts")
	cobra.CheckErr(cmd.MarkFlagRequired("topic"))
}

func (rf *runFlags) runConfig(cfg *config.Config) types.RunConfig {
	voice := rf.voice
	if voice == "" {
		voice = cfg.DefaultVoice
	}
	visualMode := rf.visualMode
	if rf.videoProvider != "" {
		visualMode = "video_gen"
	}
	return types.RunConfig{
		Topic:                  rf.topic,
		Purpose:                rf.purpose,
		TargetAudience:         rf.audience,
		Tone:                   rf.tone,
		Platform:               rf.platform,
		DurationSeconds:        rf.duration,
		Orientation:            rf.orientation,
		ImageProvider:          rf.imageProvider,
		VideoProvider:          rf.videoProvider,
		VisualMode:             visualMode,
		VoiceActor:             voice,
		VoiceModel:             cfg.DefaultVoiceModel,
		ModelProvider:          "openrouter",
		ImageStyle:             rf.imageStyle,
		AllowFaces:             rf.allowFaces,
		EnhanceForTTS:          !rf.noEnhance,
		AddSubtitles:           !rf.noSubtitles,
		AddEndBuffer:           !rf.noEndBuffer,
		SingleImagePerSegment:  rf.singleImage,
		IdealImageDuration:     visuals.DefaultIdealImageDuration,
		MinImageDuration:       visuals.DefaultMinImageDuration,
		EnableResearch:         rf.v2 && rf.enableResearch,
		ScriptStrategy:         rf.scriptStrategy,
		AdditionalInstructions: rf.instructions,
		AdditionalImageNotes:   rf.imageNotes,
		ProductName:            rf.productName,
		ProductDescription:     rf.productDesc,
		ReferenceNotes:         rf.referenceNotes,
		SimpleScenes:           rf.simpleScenes,
		ChapterImages:          rf.chapterImages,
	}
}

// setup resolves config, run config and deps for one invocation.
func setup(cmd *cobra.Command, opts *rootOptions, rf *runFlags, flowName string) (*config.Config, types.RunConfig, flows.Deps, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, types.RunConfig{}, flows.Deps{}, err
	}
	run := rf.runConfig(cfg)
	log := opts.logger()
	deps, err := buildDeps(cfg, run, flows.NewRunDir(cfg.OutputDir, flowName), log)
	if err != nil {
		return nil, types.RunConfig{}, flows.Deps{}, err
	}
	errOut := cmd.ErrOrStderr()
	deps.Progress = func(step string, index, total int) {
		fmt.Fprintf(errOut, "[%d/%d] %s\n", index+1, total, step)
	}
	return cfg, run, deps, nil
}

// reportPartial tells the user which step killed the run and dumps the
// state so whatever was already produced is not lost with the error.
func reportPartial(cmd *cobra.Command, err error) error {
	var se *pipeline.StepError
	if !errors.As(err, &se) {
		return err
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "run failed in step %q; partial results:\n", se.Step)
	if data, mErr := json.MarshalIndent(se.State, "", "  "); mErr == nil {
		fmt.Fprintln(out, string(data))
	}
	return err
}

func newShortCmd(opts *rootOptions) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "short",
		Short: "Generate a short-form video",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, run, deps, err := setup(cmd, opts, rf, "short")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var final string
			if rf.v2 {
				state, err := flows.NewShortFormV2(deps).Run(ctx, run)
				if err != nil {
					return reportPartial(cmd, err)
				}
				final = state.FinalVideoPath
			} else {
				state, err := flows.NewShortForm(deps).Run(ctx, run)
				if err != nil {
					return reportPartial(cmd, err)
				}
				final = state.FinalVideoPath
			}
			fmt.Fprintln(cmd.OutOrStdout(), final)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newLongCmd(opts *rootOptions) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "long",
		Short: "Generate a multi-section long-form video",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, run, deps, err := setup(cmd, opts, rf, "long")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var final string
			if rf.v2 {
				state, err := flows.NewLongFormV2(deps, rf.scriptStrategy).Run(ctx, run)
				if err != nil {
					return reportPartial(cmd, err)
				}
				final = state.FinalVideoPath
			} else {
				state, err := flows.NewLongForm(deps).Run(ctx, run)
				if err != nil {
					return reportPartial(cmd, err)
				}
				final = state.FinalVideoPath
			}
			fmt.Fprintln(cmd.OutOrStdout(), final)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newEbookCmd(opts *rootOptions) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "ebook",
		Short: "Generate a chaptered ebook with cover art and optional narration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, run, deps, err := setup(cmd, opts, rf, "ebook")
			if err != nil {
				return err
			}
			state, err := flows.NewEbook(deps).Run(cmd.Context(), run)
			if err != nil {
				return reportPartial(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), state.ManuscriptPath)
			if state.AudiobookPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), state.AudiobookPath)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&rf.chapterImages, "chapter-images", false, "illustrate each chapter")
	return cmd
}

func newUGCCmd(opts *rootOptions) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "ugc",
		Short: "Generate a creator-style product review video",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, run, deps, err := setup(cmd, opts, rf, "ugc")
			if err != nil {
				return err
			}
			state, err := flows.NewUGC(deps).Run(cmd.Context(), run)
			if err != nil {
				return reportPartial(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), state.FinalVideoPath)
			return nil
		},
	}
	rf.register(cmd)
	f := cmd.Flags()
	f.StringVar(&rf.productName, "product", "", "product name (defaults to --topic)")
	f.StringVar(&rf.productDesc, "product-desc", "", "what the product is and does")
	f.StringVar(&rf.referenceNotes, "reference-notes", "", "style notes from reference creator videos")
	f.BoolVar(&rf.simpleScenes, "simple-scenes", false, "plain product shots instead of lifestyle scenes")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			records, err := history.New(cfg.HistoryPath).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s  %-40.40s  %s\n", r.CreatedAt, r.VideoType, r.Topic, r.VideoPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
	return cmd
}
