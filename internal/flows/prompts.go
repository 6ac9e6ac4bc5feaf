package flows

import (
	"fmt"
	"strings"

	"github.com/reelforge/reelforge/internal/types"
)

const writerSystem = "You are a senior short-form video writer. You write tight, spoken-word scripts that hold attention. Always answer with the exact JSON shape requested, no commentary."

func goalPrompt(cfg types.RunConfig) string {
	return fmt.Sprintf(
		"Topic: %s\nPurpose: %s\nAudience: %s\nPlatform: %s\nTone: %s\n\n"+
			"State the single communication goal of this video in one sentence.\n"+
			`Respond as JSON: {"goal": "..."}`,
		cfg.Topic, cfg.Purpose, cfg.TargetAudience, cfg.Platform, cfg.Tone)
}

func hookPrompt(cfg types.RunConfig, goal string) string {
	return fmt.Sprintf(
		"Goal: %s\nTopic: %s\nTone: %s\n\n"+
			"Write an opening hook of at most two short spoken sentences that makes scrolling past impossible.\n"+
			`Respond as JSON: {"hook": "..."}`,
		goal, cfg.Topic, cfg.Tone)
}

func scriptPrompt(cfg types.RunConfig, goal, hook, researchBrief string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\nHook (already written, start from it): %s\n", goal, hook)
	fmt.Fprintf(&b, "Target length: about %d seconds of speech (~%d words).\n", cfg.DurationSeconds, cfg.DurationSeconds*150/60)
	if researchBrief != "" {
		fmt.Fprintf(&b, "\nResearch brief to ground claims in:\n%s\n", researchBrief)
	}
	if cfg.AdditionalInstructions != "" {
		fmt.Fprintf(&b, "\nAdditional instructions: %s\n", cfg.AdditionalInstructions)
	}
	b.WriteString("\nWrite the full spoken script. No scene directions, no markdown, just the words to be spoken.\n")
	b.WriteString(`Respond as JSON: {"script": "..."}`)
	return b.String()
}

func segmentPrompt(script string) string {
	return fmt.Sprintf(
		"Script:\n%s\n\n"+
			"Split this script into visual segments of one to two sentences each. Keep the text verbatim; only choose the cut points.\n"+
			`Respond as JSON: {"segments": ["...", "..."]}`,
		script)
}

func enhancePrompt(script string) string {
	return fmt.Sprintf(
		"Script:\n%s\n\n"+
			"Rewrite for text-to-speech delivery: expand abbreviations and numerals into words, add natural punctuation for pacing. Do not change the wording otherwise.\n"+
			`Respond as JSON: {"script": "..."}`,
		script)
}

func imageDescriptionsPrompt(cfg types.RunConfig, segment string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Narration for this segment: %s\n", segment)
	fmt.Fprintf(&b, "Write %d distinct image descriptions that visualize this narration, each a single sentence of concrete visual detail.\n", count)
	if !cfg.AllowFaces {
		b.WriteString("No human faces.\n")
	}
	if cfg.AdditionalImageNotes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", cfg.AdditionalImageNotes)
	}
	b.WriteString(`Respond as JSON: {"descriptions": ["...", "..."]}`)
	return b.String()
}

func structurePrompt(cfg types.RunConfig, goal string) string {
	minutes := cfg.DurationSeconds / 60
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(
		"Goal: %s\nTopic: %s\nTotal length: about %d minutes.\n\n"+
			"Plan the video as 3 to 6 sections. For each give a name, a one-sentence summary, and a word budget. Budgets should sum to roughly %d words.\n"+
			`Respond as JSON: {"sections": [{"name": "...", "summary": "...", "target_words": 120}]}`,
		goal, cfg.Topic, minutes, cfg.DurationSeconds*150/60)
}

func sectionScriptPrompt(cfg types.RunConfig, goal string, section types.SectionStructure, previousTail string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\nSection: %s\nSummary: %s\nBudget: about %d words.\n",
		goal, section.Name, section.Summary, section.TargetWords)
	if previousTail != "" {
		fmt.Fprintf(&b, "\nThe previous section ended with:\n%s\n\nContinue naturally from it.\n", previousTail)
	}
	b.WriteString("\nWrite this section's spoken script only.\n")
	b.WriteString(`Respond as JSON: {"script": "..."}`)
	return b.String()
}

func connectorPrompt(from, to string) string {
	return fmt.Sprintf(
		"Section A ends with:\n%s\n\nSection B begins with:\n%s\n\n"+
			"Write one short spoken sentence that bridges A into B.\n"+
			`Respond as JSON: {"connector": "..."}`,
		from, to)
}

func styleGuidePrompt(cfg types.RunConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nTone: %s\nPlatform: %s\n", cfg.Topic, cfg.Tone, cfg.Platform)
	if cfg.ImageStyle != "" {
		fmt.Fprintf(&b, "Requested style: %s\n", cfg.ImageStyle)
	}
	if cfg.BrandGuidelines != "" {
		fmt.Fprintf(&b, "Brand guidelines: %s\n", cfg.BrandGuidelines)
	}
	b.WriteString("\nDefine one coherent visual style for every image in this video.\n")
	b.WriteString(`Respond as JSON: {"palette": "...", "lighting": "...", "composition": "...", "mood": "...", "summary": "..."}`)
	return b.String()
}

func storyboardPrompt(cfg types.RunConfig, style string, segments []string, plans []types.SegmentVisualPlan) string {
	var b strings.Builder
	b.WriteString("Storyboard the whole video in one pass. You see every segment at once, so vary framing and subject between consecutive shots instead of repeating the same composition.\n\n")
	for _, plan := range plans {
		fmt.Fprintf(&b, "Segment %d needs %d images. Narration: %s\n", plan.SegmentIndex, plan.NumImages, segments[plan.SegmentIndex])
	}
	if style != "" {
		fmt.Fprintf(&b, "\nEvery description must fit this visual style: %s\n", style)
	}
	if !cfg.AllowFaces {
		b.WriteString("No human faces.\n")
	}
	if cfg.AdditionalImageNotes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", cfg.AdditionalImageNotes)
	}
	b.WriteString("Each description is a single sentence of concrete visual detail.\n")
	b.WriteString(`Respond as JSON, one entry per segment in order: {"segments": [{"descriptions": ["...", "..."]}]}`)
	return b.String()
}

func productVisualPrompt(cfg types.RunConfig) string {
	var b strings.Builder
	name := cfg.ProductName
	if name == "" {
		name = cfg.Topic
	}
	fmt.Fprintf(&b, "Product: %s\n", name)
	if cfg.ProductDescription != "" {
		fmt.Fprintf(&b, "Details: %s\n", cfg.ProductDescription)
	}
	b.WriteString("\nWrite one concrete visual description of the product: shape, size, colors, materials, branding. A single paragraph an image model can reproduce consistently.\n")
	b.WriteString(`Respond as JSON: {"description": "..."}`)
	return b.String()
}

func ugcScriptPrompt(cfg types.RunConfig, productVisual string) string {
	var b strings.Builder
	name := cfg.ProductName
	if name == "" {
		name = cfg.Topic
	}
	fmt.Fprintf(&b, "Product: %s\nWhat it looks like: %s\nTone: %s\nPlatform: %s\n", name, productVisual, cfg.Tone, cfg.Platform)
	fmt.Fprintf(&b, "Target length: about %d seconds of speech.\n", cfg.DurationSeconds)
	if cfg.ReferenceNotes != "" {
		fmt.Fprintf(&b, "\nImitate the style of these reference videos:\n%s\n", cfg.ReferenceNotes)
	}
	if cfg.AdditionalInstructions != "" {
		fmt.Fprintf(&b, "\nAdditional instructions: %s\n", cfg.AdditionalInstructions)
	}
	b.WriteString("\nWrite a casual first-person product review script, like a real customer talking to camera. Spoken words only, no scene directions.\n")
	b.WriteString(`Respond as JSON: {"script": "..."}`)
	return b.String()
}

func scenePlanPrompt(cfg types.RunConfig, productVisual string, segments []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product appearance: %s\n\nNarration segments:\n", productVisual)
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d. %s\n", i+1, seg)
	}
	b.WriteString("\nPlan one product scene per segment: where the product sits and what surrounds it. Keep the product's appearance exactly as described in every scene.\n")
	if cfg.SimpleScenes {
		b.WriteString("Keep scenes simple: the product on a plain surface, minimal props.\n")
	} else {
		b.WriteString("Vary the environments: lifestyle settings where this product is actually used.\n")
	}
	if !cfg.AllowFaces {
		b.WriteString("No human faces. Hands are fine.\n")
	}
	b.WriteString(`Respond as JSON: {"scenes": [{"setting": "...", "image_prompt": "...", "motion_prompt": "..."}]}`)
	return b.String()
}

func reviewPrompt(cfg types.RunConfig, goal, script string) string {
	return fmt.Sprintf(
		"Goal: %s\nTarget length: about %d seconds of speech.\n\nScript:\n%s\n\n"+
			"Review this script as a demanding editor. Score 0 to 10 for hook strength, clarity and pacing combined. Approve only at 7 or above.\n"+
			`Respond as JSON: {"approved": true, "score": 8.5, "issues": ["..."]}`,
		goal, cfg.DurationSeconds, script)
}

func revisePrompt(script string, issues []string) string {
	return fmt.Sprintf(
		"Script:\n%s\n\nEditor issues:\n- %s\n\n"+
			"Rewrite the script fixing every issue while keeping its voice and length.\n"+
			`Respond as JSON: {"script": "..."}`,
		script, strings.Join(issues, "\n- "))
}
