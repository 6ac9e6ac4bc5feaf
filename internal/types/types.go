package types

// WordAlignment is one timestamped word as reconstructed from the TTS
// engine's character-level timing data. Times are seconds from the start
// of the audio clip.
type WordAlignment struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SegmentTiming is the derived start/end/duration for one script segment
// after alignment against the audio.
type SegmentTiming struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// SegmentVisualPlan describes the visuals for one script segment. The
// shape (NumImages, LastImageDuration) is decided from timing alone;
// descriptions and media paths are filled in by later steps.
type SegmentVisualPlan struct {
	SegmentIndex      int      `json:"segment_index"`
	NumImages         int      `json:"num_images"`
	LastImageDuration float64  `json:"last_image_duration"`
	ImageDescriptions []string `json:"image_descriptions,omitempty"`
	ImagePaths        []string `json:"image_paths,omitempty"`
	// MotionPrompt, when set, drives generated motion clips instead of
	// the first image description.
	MotionPrompt string `json:"motion_prompt,omitempty"`
	VideoPath    string `json:"video_path,omitempty"`
}

// RunConfig holds the user inputs shared by every flow. Immutable once a
// run starts.
type RunConfig struct {
	Topic                  string  `json:"topic"`
	Purpose                string  `json:"purpose"`
	TargetAudience         string  `json:"target_audience"`
	Tone                   string  `json:"tone"`
	Platform               string  `json:"platform"`
	DurationSeconds        int     `json:"duration_seconds"`
	Orientation            string  `json:"orientation"` // portrait | landscape
	ModelProvider          string  `json:"model_provider"`
	ImageProvider          string  `json:"image_provider"` // google | openai | flux
	VideoProvider          string  `json:"video_provider"` // runway | luma | kling
	VisualMode             string  `json:"visual_mode"`    // zoompan | video_gen
	VoiceActor             string  `json:"voice_actor"`
	VoiceModel             string  `json:"voice_model"`
	ImageStyle             string  `json:"image_style"`
	AllowFaces             bool    `json:"allow_faces"`
	EnhanceForTTS          bool    `json:"enhance_for_tts"`
	AddSubtitles           bool    `json:"add_subtitles"`
	AddEndBuffer           bool    `json:"add_end_buffer"`
	SingleImagePerSegment  bool    `json:"single_image_per_segment"`
	IdealImageDuration     float64 `json:"ideal_image_duration"`
	MinImageDuration       float64 `json:"min_image_duration"`
	EnableResearch         bool    `json:"enable_research"`
	ScriptStrategy         string  `json:"script_strategy,omitempty"` // parallel | sequential
	AdditionalInstructions string  `json:"additional_instructions,omitempty"`
	AdditionalImageNotes   string  `json:"additional_image_notes,omitempty"`
	StyleReference         string  `json:"style_reference,omitempty"`
	BrandGuidelines        string  `json:"brand_guidelines,omitempty"`

	// UGC inputs. ReferenceNotes carries observations about reference
	// creator videos the user wants imitated.
	ProductName        string `json:"product_name,omitempty"`
	ProductDescription string `json:"product_description,omitempty"`
	ReferenceNotes     string `json:"reference_notes,omitempty"`
	SimpleScenes       bool   `json:"simple_scenes,omitempty"`

	// Ebook inputs.
	ChapterImages bool `json:"chapter_images,omitempty"`
}

// ShortFormState is the mutable state of one short-form run. Fields are
// populated monotonically as steps succeed; nothing is ever cleared, so a
// failed run can still display everything produced before the failure.
// Word alignments are excluded from JSON checkpoints (large, low value).
type ShortFormState struct {
	Config RunConfig `json:"config"`

	Goal           string              `json:"goal,omitempty"`
	Hook           string              `json:"hook,omitempty"`
	Script         string              `json:"script,omitempty"`
	EnhancedScript string              `json:"enhanced_script,omitempty"`
	Segments       []string            `json:"segments,omitempty"`
	AudioPath      string              `json:"audio_path,omitempty"`
	WordAlignments []WordAlignment     `json:"-"`
	SegmentTimings []SegmentTiming     `json:"segment_timings,omitempty"`
	VisualPlans    []SegmentVisualPlan `json:"visual_plans,omitempty"`
	ClipPaths      []string            `json:"clip_paths,omitempty"`
	FinalVideoPath string              `json:"final_video_path,omitempty"`
}

// SectionStructure is one planned section of a long-form outline.
type SectionStructure struct {
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	TargetWords int    `json:"target_words,omitempty"`
}

// SectionState is the per-section state of a long-form run. Each section
// owns a disjoint slot of the run state, so parallel stages can fill
// sections concurrently without shared-mutable contention.
type SectionState struct {
	Structure        SectionStructure    `json:"structure"`
	Script           string              `json:"script,omitempty"`
	TTSScript        string              `json:"tts_script,omitempty"`
	Segments         []string            `json:"segments,omitempty"`
	AudioPath        string              `json:"audio_path,omitempty"`
	WordAlignments   []WordAlignment     `json:"-"`
	SegmentTimings   []SegmentTiming     `json:"segment_timings,omitempty"`
	VisualPlans      []SegmentVisualPlan `json:"visual_plans,omitempty"`
	ClipPaths        []string            `json:"clip_paths,omitempty"`
	SectionVideoPath string              `json:"section_video_path,omitempty"`
}

// LongFormState is the mutable state of one long-form run.
type LongFormState struct {
	Config RunConfig `json:"config"`

	Goal           string         `json:"goal,omitempty"`
	Sections       []SectionState `json:"sections,omitempty"`
	FullScript     string         `json:"full_script,omitempty"`
	FinalVideoPath string         `json:"final_video_path,omitempty"`
}

// RunRecord is the history entry persisted after a completed run.
type RunRecord struct {
	ID            string `json:"id"`
	Topic         string `json:"topic"`
	VideoType     string `json:"video_type"`
	Duration      int    `json:"duration_seconds"`
	Orientation   string `json:"orientation"`
	ModelProvider string `json:"model_provider"`
	ImageProvider string `json:"image_provider"`
	VoiceActor    string `json:"voice_actor"`
	VideoPath     string `json:"video_path"`
	Script        string `json:"script,omitempty"`
	Goal          string `json:"goal,omitempty"`
	CreatedAt     string `json:"created_at"`
}
