package flows

import (
	"context"

	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
)

// maxRevisions bounds the review-revise loop. A script that still fails
// review after the last revision ships anyway with its report attached;
// an editor that can never be satisfied must not wedge the run.
const maxRevisions = 2

func reviewScript(ctx context.Context, d Deps, cfg types.RunConfig, goal, script string) (types.QualityReport, error) {
	out, err := genJSON[struct {
		Approved bool     `json:"approved"`
		Score    float64  `json:"score"`
		Issues   []string `json:"issues"`
	}](ctx, d.Gen, ports.GenRequest{System: writerSystem, Prompt: reviewPrompt(cfg, goal, script)})
	if err != nil {
		return types.QualityReport{}, err
	}
	return types.QualityReport{Approved: out.Approved, Score: out.Score, Issues: out.Issues}, nil
}

// reviewAndRevise gates a script through the editor model, revising up
// to maxRevisions times.
func reviewAndRevise(ctx context.Context, d Deps, cfg types.RunConfig, goal, script string) (string, types.QualityReport, error) {
	report, err := reviewScript(ctx, d, cfg, goal, script)
	if err != nil {
		return "", types.QualityReport{}, err
	}
	for revision := 1; !report.Approved && revision <= maxRevisions; revision++ {
		d.Log.Info().Int("revision", revision).Float64("score", report.Score).Msg("script rejected, revising")
		out, err := genJSON[struct {
			Script string `json:"script"`
		}](ctx, d.Gen, ports.GenRequest{System: writerSystem, Prompt: revisePrompt(script, report.Issues)})
		if err != nil {
			return "", types.QualityReport{}, err
		}
		script = out.Script
		report, err = reviewScript(ctx, d, cfg, goal, script)
		if err != nil {
			return "", types.QualityReport{}, err
		}
		report.Revision = revision
	}
	if !report.Approved {
		d.Log.Warn().Float64("score", report.Score).Msg("script still below bar after revisions, proceeding")
	}
	return script, report, nil
}
