package types

// ResearchBundle carries the grounding material gathered before any
// creative step in a v2 run.
type ResearchBundle struct {
	TopicFindings string `json:"topic_findings,omitempty"`
	TrendFindings string `json:"trend_findings,omitempty"`
	Synthesis     string `json:"synthesis,omitempty"`
}

// QualityReport is the reviewer verdict for one piece of generated text.
type QualityReport struct {
	Approved bool     `json:"approved"`
	Score    float64  `json:"score"`
	Issues   []string `json:"issues,omitempty"`
	Revision int      `json:"revision"`
}

// StyleGuide is the single upfront visual direction for a v2 run. Every
// image prompt in the run references it so the output stays coherent.
type StyleGuide struct {
	Palette     string `json:"palette,omitempty"`
	Lighting    string `json:"lighting,omitempty"`
	Composition string `json:"composition,omitempty"`
	Mood        string `json:"mood,omitempty"`
	Summary     string `json:"summary"`
}

// ShortFormV2State extends the short-form run with research, quality
// gates and a run-wide style guide.
type ShortFormV2State struct {
	Config RunConfig `json:"config"`

	Research       ResearchBundle      `json:"research,omitempty"`
	Goal           string              `json:"goal,omitempty"`
	Hook           string              `json:"hook,omitempty"`
	Script         string              `json:"script,omitempty"`
	ScriptQuality  QualityReport       `json:"script_quality,omitempty"`
	EnhancedScript string              `json:"enhanced_script,omitempty"`
	StyleGuide     StyleGuide          `json:"style_guide,omitempty"`
	Segments       []string            `json:"segments,omitempty"`
	AudioPath      string              `json:"audio_path,omitempty"`
	WordAlignments []WordAlignment     `json:"-"`
	SegmentTimings []SegmentTiming     `json:"segment_timings,omitempty"`
	VisualPlans    []SegmentVisualPlan `json:"visual_plans,omitempty"`
	ClipPaths      []string            `json:"clip_paths,omitempty"`
	FinalVideoPath string              `json:"final_video_path,omitempty"`
}

// SectionV2State is the per-section state of a long-form v2 run.
type SectionV2State struct {
	Structure     SectionStructure `json:"structure"`
	Script        string           `json:"script,omitempty"`
	ScriptQuality QualityReport    `json:"script_quality,omitempty"`
	Connector     string           `json:"connector,omitempty"`

	TTSScript        string              `json:"tts_script,omitempty"`
	Segments         []string            `json:"segments,omitempty"`
	AudioPath        string              `json:"audio_path,omitempty"`
	WordAlignments   []WordAlignment     `json:"-"`
	SegmentTimings   []SegmentTiming     `json:"segment_timings,omitempty"`
	VisualPlans      []SegmentVisualPlan `json:"visual_plans,omitempty"`
	ClipPaths        []string            `json:"clip_paths,omitempty"`
	SectionVideoPath string              `json:"section_video_path,omitempty"`
}

// LongFormV2State is the long-form run with research, section quality
// gates, and the choice between parallel and sequential section writing.
type LongFormV2State struct {
	Config RunConfig `json:"config"`

	Research       ResearchBundle   `json:"research,omitempty"`
	Goal           string           `json:"goal,omitempty"`
	StyleGuide     StyleGuide       `json:"style_guide,omitempty"`
	Sections       []SectionV2State `json:"sections,omitempty"`
	FullScript     string           `json:"full_script,omitempty"`
	FinalVideoPath string           `json:"final_video_path,omitempty"`
}

// ChapterState is one chapter of an ebook run. Content holds the draft
// until the edit pass replaces it with the polished text.
type ChapterState struct {
	Title     string `json:"title"`
	Summary   string `json:"summary,omitempty"`
	Content   string `json:"content,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
	AudioPath string `json:"audio_path,omitempty"`
}

// EbookState is the mutable state of an ebook run: an outline expanded
// chapter by chapter into a manuscript, optionally illustrated and
// narrated.
type EbookState struct {
	Config RunConfig `json:"config"`

	Title          string         `json:"title,omitempty"`
	Outline        string         `json:"outline,omitempty"`
	Introduction   string         `json:"introduction,omitempty"`
	Chapters       []ChapterState `json:"chapters,omitempty"`
	Conclusion     string         `json:"conclusion,omitempty"`
	CoverImagePath string         `json:"cover_image_path,omitempty"`
	ManuscriptPath string         `json:"manuscript_path,omitempty"`
	AudiobookPath  string         `json:"audiobook_path,omitempty"`
}

// SceneDescription is one planned product scene, mapped 1:1 to a script
// segment.
type SceneDescription struct {
	SegmentIndex int    `json:"segment_index"`
	Setting      string `json:"setting,omitempty"`
	ImagePrompt  string `json:"image_prompt"`
	MotionPrompt string `json:"motion_prompt,omitempty"`
}

// UGCState is the mutable state of a UGC-style product ad run: a
// first-person review script laid over product-in-environment scenes.
type UGCState struct {
	Config RunConfig `json:"config"`

	ProductVisual  string              `json:"product_visual,omitempty"`
	Script         string              `json:"script,omitempty"`
	EnhancedScript string              `json:"enhanced_script,omitempty"`
	Segments       []string            `json:"segments,omitempty"`
	AudioPath      string              `json:"audio_path,omitempty"`
	WordAlignments []WordAlignment     `json:"-"`
	SegmentTimings []SegmentTiming     `json:"segment_timings,omitempty"`
	Scenes         []SceneDescription  `json:"scenes,omitempty"`
	VisualPlans    []SegmentVisualPlan `json:"visual_plans,omitempty"`
	ClipPaths      []string            `json:"clip_paths,omitempty"`
	FinalVideoPath string              `json:"final_video_path,omitempty"`
}
